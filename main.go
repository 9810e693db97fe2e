package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"storefront-service/handlers"
	"storefront-service/internal/auth"
	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/checkout"
	"storefront-service/internal/config"
	"storefront-service/internal/consul"
	"storefront-service/internal/identity"
	"storefront-service/internal/metrics"
	"storefront-service/internal/notify"
	"storefront-service/internal/orders"
	"storefront-service/internal/payments"
	"storefront-service/internal/stores/kafka"
	"storefront-service/internal/stores/postgres"
	"storefront-service/internal/users"
	"storefront-service/pkg/logkey"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	// API payloads and order events carry amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
	if err := startApp(); err != nil {
		slog.Error("storefront-service stopped", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func startApp() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.OpenDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.RunMigrations(db); err != nil {
		return err
	}

	catalogConf, err := catalog.NewConf(db)
	if err != nil {
		return err
	}
	cartConf, err := cart.NewConf(db)
	if err != nil {
		return err
	}
	paymentConf, err := payments.NewConf(db)
	if err != nil {
		return err
	}
	orderConf, err := orders.NewConf(db)
	if err != nil {
		return err
	}
	userConf, err := users.NewConf(db)
	if err != nil {
		return err
	}

	var publisher payments.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		defer producer.Close()
		publisher = producer
		slog.Info("publishing order events to kafka", slog.String("topic", kafka.TopicOrderCreated))
	} else {
		mailer := notify.NewMailer(notify.SMTPConfig{
			Host: cfg.SMTPHost, Port: cfg.SMTPPort, Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword, From: cfg.MailFrom,
		})
		publisher = notify.NewDirect(notify.NewDispatcher(mailer, cfg.AdminEmail))
		slog.Info("no kafka brokers configured, dispatching notifications in process")
	}

	keys, err := auth.NewKeys(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	gateway, err := payments.NewStripeGateway(payments.StripeConfig{
		SecretKey:  cfg.StripeSecretKey,
		Currency:   cfg.Currency,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
	})
	if err != nil {
		return err
	}

	carts := cart.NewService(cartConf)
	callbacks := payments.NewCallbackProcessor(paymentConf, publisher)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router, err := handlers.API(cfg.GinMode, cfg.EndpointPrefix, handlers.Deps{
		Keys:          keys,
		Resolver:      identity.NewResolver(keys),
		Catalog:       catalogConf,
		Users:         users.NewService(userConf),
		Carts:         carts,
		Checkout:      checkout.NewService(carts, paymentConf, gateway),
		Callbacks:     callbacks,
		Orders:        orders.NewService(orderConf),
		Metrics:       metrics.NewServerMetrics(reg),
		Gatherer:      reg,
		GatewaySecret: []byte(cfg.GatewaySecret),

		StripeWebhookSecret: cfg.StripeWebhookSecret,
	})
	if err != nil {
		return err
	}

	if cfg.ConsulAddress != "" {
		client, err := consul.NewClient(cfg.ConsulAddress)
		if err != nil {
			return err
		}
		registration := consul.Registration{Name: cfg.ServiceName, Host: cfg.ServiceHost, Port: cfg.AppPortInt()}
		if err := consul.Register(client, registration); err != nil {
			return err
		}
		defer func() {
			if err := consul.Deregister(client, registration); err != nil {
				slog.Error("failed to deregister from consul", slog.String(logkey.ERROR, err.Error()))
			}
		}()
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	listener, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}

	api := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErrors := make(chan error, 2)
	go func() {
		slog.Info("grpc health server started", slog.String("port", cfg.GRPCPort))
		serverErrors <- grpcServer.Serve(listener)
	}()
	go func() {
		slog.Info("http server started", slog.String("port", cfg.AppPort))
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
			return
		}
		serverErrors <- nil
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown started")
	}

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		_ = api.Close()
		return fmt.Errorf("could not stop http server gracefully: %w", err)
	}
	grpcServer.GracefulStop()
	callbacks.Wait()
	slog.Info("shutdown complete")
	return nil
}
