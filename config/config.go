// Package config loads the environment-provided configuration surface.
// Every option has a documented default so both binaries run with zero
// configuration. Unparseable values fall back to their defaults with a
// warning, they are never fatal at startup.
package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ordersmq/ordersmq/internal/rabbitmq"
)

// Config is the shared configuration of the API and the worker.
type Config struct {
	RabbitHost string `env:"RABBITMQ_HOST"`
	RabbitUser string `env:"RABBITMQ_USER"`
	RabbitPass string `env:"RABBITMQ_PASS"`

	Prefetch   int `env:"WORKER_PREFETCH"`
	MaxRetries int `env:"WORKER_MAX_RETRIES"`

	APIAddr    string `env:"API_ADDR"`
	HealthAddr string `env:"WORKER_HEALTH_ADDR"`

	DedupTTL        time.Duration `env:"DEDUP_TTL"`
	DedupMaxEntries int           `env:"DEDUP_MAX_ENTRIES"`

	ReconnectDelay time.Duration `env:"RECONNECT_DELAY"`
}

// Default returns the zero-configuration defaults.
func Default() Config {
	return Config{
		RabbitHost:      "localhost",
		RabbitUser:      "guest",
		RabbitPass:      "guest",
		Prefetch:        10,
		MaxRetries:      3,
		APIAddr:         ":8080",
		HealthAddr:      ":8090",
		DedupTTL:        10 * time.Minute,
		DedupMaxEntries: 10000,
		ReconnectDelay:  5 * time.Second,
	}
}

// Load reads the environment over the defaults. Fields whose environment
// value does not parse keep their default, the aggregate parse error is
// logged once at warning level.
func Load(logger *slog.Logger) Config {
	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		logger.Warn("ignoring unparseable environment values", "error", err)
	}
	return normalize(cfg, logger)
}

// AMQPURL builds the broker connection URI.
func (c Config) AMQPURL() string {
	return rabbitmq.URI(c.RabbitHost, c.RabbitUser, c.RabbitPass)
}

// normalize clamps values an operator could set to something unusable.
func normalize(cfg Config, logger *slog.Logger) Config {
	def := Default()
	if cfg.Prefetch <= 0 {
		logger.Warn("prefetch must be positive, using default", "value", cfg.Prefetch, "default", def.Prefetch)
		cfg.Prefetch = def.Prefetch
	}
	if cfg.MaxRetries <= 0 {
		logger.Warn("max retries must be positive, using default", "value", cfg.MaxRetries, "default", def.MaxRetries)
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = def.DedupTTL
	}
	if cfg.DedupMaxEntries <= 0 {
		cfg.DedupMaxEntries = def.DedupMaxEntries
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	return cfg
}
