package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SignatureMode controls webhook signature verification. Bypass exists for
// local development against provider sandboxes that cannot sign requests; it
// must never be the default.
type SignatureMode string

const (
	SignatureEnforced SignatureMode = "enforced"
	SignatureBypassed SignatureMode = "bypassed"
)

// Config captures everything the process needs from the environment so main
// stays lean.
type Config struct {
	Addr        string
	DatabaseURL string

	Redis RedisConfig
	Kafka KafkaConfig

	JWTSigningKey string
	JWTIssuer     string

	Sumsub SumsubConfig
	Stripe StripeConfig

	SignatureMode SignatureMode

	// Payment amount bounds in euros, inclusive.
	PaymentMinAmount int64
	PaymentMaxAmount int64
}

// RedisConfig configures the optional dedupe cache. Empty URL disables it.
type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional audit fanout. No brokers disables it.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

type SumsubConfig struct {
	BaseURL       string
	AppToken      string
	SecretKey     string
	WebhookSecret string
	LevelName     string
	TokenTTL      time.Duration
	Timeout       time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:        envOr("MYTSANGO_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		},
		Kafka: KafkaConfig{
			Brokers:    splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "mytsango.audit"),
		},
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:     envOr("JWT_ISSUER", "mytsango"),
		Sumsub: SumsubConfig{
			BaseURL:       envOr("SUMSUB_BASE_URL", "https://api.sumsub.com"),
			AppToken:      os.Getenv("SUMSUB_APP_TOKEN"),
			SecretKey:     os.Getenv("SUMSUB_SECRET_KEY"),
			WebhookSecret: os.Getenv("SUMSUB_WEBHOOK_SECRET"),
			LevelName:     envOr("SUMSUB_LEVEL_NAME", "basic-kyc-level"),
			TokenTTL:      10 * time.Minute,
			Timeout:       15 * time.Second,
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
		SignatureMode:    SignatureEnforced,
		PaymentMinAmount: 5,
		PaymentMaxAmount: 500,
	}

	// Bypass requires the exact opt-in value; anything else stays enforced.
	if os.Getenv("WEBHOOK_SIGNATURE_MODE") == string(SignatureBypassed) {
		cfg.SignatureMode = SignatureBypassed
	}

	if v := os.Getenv("PAYMENT_MIN_AMOUNT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse PAYMENT_MIN_AMOUNT: %w", err)
		}
		cfg.PaymentMinAmount = n
	}
	if v := os.Getenv("PAYMENT_MAX_AMOUNT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse PAYMENT_MAX_AMOUNT: %w", err)
		}
		cfg.PaymentMaxAmount = n
	}
	if cfg.PaymentMinAmount <= 0 || cfg.PaymentMaxAmount < cfg.PaymentMinAmount {
		return Config{}, fmt.Errorf("invalid payment amount bounds: min=%d max=%d",
			cfg.PaymentMinAmount, cfg.PaymentMaxAmount)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
