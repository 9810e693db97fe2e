package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort        string
	GRPCPort       string
	EndpointPrefix string
	GinMode        string

	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	GatewaySecret       string
	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string

	KafkaBrokers []string

	ConsulAddress string
	ServiceName   string
	ServiceHost   string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	AdminEmail   string
}

// Load reads the configuration from the environment. A .env file in the working directory,
// when present, fills in variables that are not already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults and checking required values.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		AppPort:             get("APP_PORT", "8080"),
		GRPCPort:            get("GRPC_PORT", "5001"),
		EndpointPrefix:      get("SERVICE_ENDPOINT_PREFIX", ""),
		GinMode:             get("GIN_MODE", "debug"),
		DatabaseURL:         get("DATABASE_URL", ""),
		JWTSecret:           get("JWT_SECRET", ""),
		GatewaySecret:       get("GATEWAY_SECRET", ""),
		StripeSecretKey:     get("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: get("STRIPE_WEBHOOK_SECRET", ""),
		Currency:            get("CURRENCY", "ngn"),
		CheckoutSuccessURL:  get("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success"),
		CheckoutCancelURL:   get("CHECKOUT_CANCEL_URL", "http://localhost:3000/checkout/cancel"),
		ConsulAddress:       get("CONSUL_HTTP_ADDR", ""),
		ServiceName:         get("SERVICE_NAME", "storefront-service"),
		ServiceHost:         get("SERVICE_HOST", "localhost"),
		SMTPHost:            get("SMTP_HOST", ""),
		SMTPPort:            get("SMTP_PORT", "587"),
		SMTPUsername:        get("SMTP_USERNAME", ""),
		SMTPPassword:        get("SMTP_PASSWORD", ""),
		MailFrom:            get("MAIL_FROM", "no-reply@storefront.local"),
		AdminEmail:          get("ADMIN_EMAIL", ""),
	}

	ttl, err := time.ParseDuration(get("TOKEN_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	if brokers := get("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var missing []string
	for key, v := range map[string]string{
		"DATABASE_URL":          cfg.DatabaseURL,
		"JWT_SECRET":            cfg.JWTSecret,
		"GATEWAY_SECRET":        cfg.GatewaySecret,
		"STRIPE_SECRET_KEY":     cfg.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": cfg.StripeWebhookSecret,
	} {
		if v == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// AppPortInt is the HTTP port as a number, for service registration.
func (c Config) AppPortInt() int {
	n, _ := strconv.Atoi(c.AppPort)
	return n
}
