// Package config builds runtime configuration from environment variables so
// main stays lean. Validation of security-critical values happens in Validate;
// main treats any error from it as fatal.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the gateway needs at startup.
type Config struct {
	Addr        string
	DatabaseURL string

	// JWT session tokens.
	JWTSigningKey string
	JWTTTL        time.Duration

	// 32-byte key for encrypting partner NID credentials at rest.
	EncryptionKey string

	// Upstream NID registry.
	NIDAPIURL     string
	NIDAPITimeout time.Duration

	// Verification rate limiting, keyed by user id.
	RateLimit       int
	RateLimitWindow time.Duration

	Redis RedisConfig
	Kafka KafkaConfig
	SMTP  SMTPConfig

	// Base URL of the admin console, used in password reset links.
	FrontendURL string
}

// RedisConfig configures the optional Redis backend for the rate limiter.
// An empty URL means Redis is not configured and the in-memory store is used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional audit mirror. Empty brokers disable it.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// SMTPConfig configures outbound mail for password resets. An empty host
// disables delivery; reset links are then only logged.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// FromEnv reads configuration from the environment, applying defaults for
// everything that has a sane one.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("BDIVP_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DB_URL"),
		JWTSigningKey:   os.Getenv("JWT_SECRET"),
		JWTTTL:          envDuration("JWT_EXPIRES_IN", 12*time.Hour),
		EncryptionKey:   os.Getenv("ENCRYPTION_KEY"),
		NIDAPIURL:       os.Getenv("NID_API_URL"),
		NIDAPITimeout:   envDuration("NID_API_TIMEOUT", 30*time.Second),
		RateLimit:       envInt("NID_RATE_LIMIT", 10),
		RateLimitWindow: envDuration("NID_RATE_WINDOW", time.Minute),
		FrontendURL:     envOr("FRONTEND_URL", "http://localhost:3000"),
	}

	cfg.Redis = RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     envInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka = KafkaConfig{
			Brokers:    strings.Split(brokers, ","),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "bdivp.audit"),
		}
	}

	cfg.SMTP = SMTPConfig{
		Host: os.Getenv("SMTP_HOST"),
		Port: envInt("SMTP_PORT", 587),
		User: os.Getenv("SMTP_USER"),
		Pass: os.Getenv("SMTP_PASS"),
		From: envOr("SMTP_FROM", os.Getenv("SMTP_USER")),
	}

	return cfg
}

// Validate checks the settings the gateway cannot run without. The encryption
// key length check is deliberately here and not deferred to first use: a
// misconfigured key is a deploy error, not a request error.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DB_URL is required"))
	}
	if c.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if len(c.EncryptionKey) != 32 {
		errs = append(errs, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(c.EncryptionKey)))
	}
	if c.NIDAPIURL == "" {
		errs = append(errs, errors.New("NID_API_URL is required"))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
