package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all forwarder configuration.
type Config struct {
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogLabel        string        `env:"LOGSHIP_LOG_LABEL" envDefault:"application"`
	CredentialsFile string        `env:"GOOGLE_APPLICATION_CREDENTIALS,required"`
	MaxBatch        int           `env:"LOGSHIP_MAX_BATCH" envDefault:"10"`
	MaxDelay        time.Duration `env:"LOGSHIP_MAX_DELAY" envDefault:"2s"`
	BufferSize      int           `env:"LOGSHIP_BUFFER_SIZE" envDefault:"1000"`
	Scope           string        `env:"LOGSHIP_SCOPE"`
	Subject         string        `env:"LOGSHIP_SUBJECT"`
	Source          string        `env:"LOGSHIP_SOURCE" envDefault:"stdin"` // stdin or redis
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisStream     string        `env:"REDIS_STREAM" envDefault:"log_events"`
	MetricsAddr     string        `env:"METRICS_ADDR" envDefault:":9091"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxBatch <= 0 {
		return fmt.Errorf("LOGSHIP_MAX_BATCH must be positive, got %d", c.MaxBatch)
	}
	if c.MaxDelay <= 0 {
		return fmt.Errorf("LOGSHIP_MAX_DELAY must be positive, got %s", c.MaxDelay)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("LOGSHIP_BUFFER_SIZE must be positive, got %d", c.BufferSize)
	}
	if c.LogLabel == "" {
		return fmt.Errorf("LOGSHIP_LOG_LABEL must not be empty")
	}
	if c.Source != "stdin" && c.Source != "redis" {
		return fmt.Errorf("LOGSHIP_SOURCE must be stdin or redis, got %q", c.Source)
	}
	return nil
}
