package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"storefront-service/internal/config"
	"storefront-service/internal/notify"
	"storefront-service/internal/stores/kafka"
	"storefront-service/pkg/logkey"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	if err := run(); err != nil {
		slog.Error("notification-worker stopped", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required for the notification worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, kafka.ConsumerGroup, kafka.TopicOrderCreated)
	if err != nil {
		return err
	}
	defer consumer.Close()
	if err := consumer.Ping(ctx); err != nil {
		return err
	}

	mailer := notify.NewMailer(notify.SMTPConfig{
		Host: cfg.SMTPHost, Port: cfg.SMTPPort, Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword, From: cfg.MailFrom,
	})
	dispatcher := notify.NewDispatcher(mailer, cfg.AdminEmail)

	slog.Info("notification worker consuming", slog.String("topic", kafka.TopicOrderCreated))
	return consumer.ConsumeOrderCreated(ctx, dispatcher.OrderCreated)
}
