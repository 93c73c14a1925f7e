package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = strings.Repeat("k", MinSecretLen)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8431", cfg.HTTPAddr)
	assert.Equal(t, "forum-core", cfg.JWTIssuer)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, int64(1), cfg.SnowflakeNode)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("STORE", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_TOPIC", "resets")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "resets", cfg.KafkaTopic)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"short secret", map[string]string{"JWT_SECRET": "short"}},
		{"bad store", map[string]string{"JWT_SECRET": secret, "STORE": "redis"}},
		{"bad cost", map[string]string{"JWT_SECRET": secret, "BCRYPT_COST": "40"}},
		{"bad ttl", map[string]string{"JWT_SECRET": secret, "TOKEN_TTL": "banana"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
