// Package config loads the service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSecretLen is the shortest accepted HMAC signing key.
const MinSecretLen = 32

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds everything cmd/api needs beyond the database and logger
// settings, which keep their own ConfigFromEnv helpers.
type Config struct {
	HTTPAddr      string        `env:"HTTP_ADDR"       envDefault:"0.0.0.0:8431"`
	JWTSecret     string        `env:"JWT_SECRET,required"`
	JWTIssuer     string        `env:"JWT_ISSUER"      envDefault:"forum-core"`
	TokenTTL      time.Duration `env:"TOKEN_TTL"       envDefault:"72h"`
	BcryptCost    int           `env:"BCRYPT_COST"     envDefault:"12"`
	Store         string        `env:"STORE"           envDefault:"postgres"`
	SnowflakeNode int64         `env:"SNOWFLAKE_NODE"  envDefault:"1"`
	KafkaBrokers  []string      `env:"KAFKA_BROKERS"   envSeparator:","`
	KafkaTopic    string        `env:"KAFKA_TOPIC"     envDefault:"forum.events"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.JWTSecret) < MinSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLen)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST %d out of range [4,31]", c.BcryptCost)
	}
	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}
