package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		DatabaseURL:   "postgres://localhost/bdivp",
		JWTSigningKey: "test-secret",
		EncryptionKey: strings.Repeat("k", 32),
		NIDAPIURL:     "https://registry.example/verify",
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("missing database url", func(t *testing.T) {
		cfg := validConfig()
		cfg.DatabaseURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.JWTSigningKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("wrong encryption key length", func(t *testing.T) {
		cfg := validConfig()
		cfg.EncryptionKey = "short"
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ENCRYPTION_KEY")
	})

	t.Run("missing upstream url", func(t *testing.T) {
		cfg := validConfig()
		cfg.NIDAPIURL = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("BDIVP_ADDR", "")
	t.Setenv("JWT_EXPIRES_IN", "")
	t.Setenv("NID_RATE_LIMIT", "")

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 12*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 30*time.Second, cfg.NIDAPITimeout)
}

func TestFromEnv_KafkaDisabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	cfg := FromEnv()
	assert.Empty(t, cfg.Kafka.Brokers)
}
