// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty runs the service on the
	// in-memory store (dev/tests only).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// QueueCapacity is the admission queue buffer size. Sized once at
	// startup; submissions beyond it are dropped with a 429.
	QueueCapacity int `mapstructure:"QUEUE_CAPACITY"`
	// ProductionCodes is the comma-separated list of production codes
	// ensured per company on first sight (e.g. "PT,PY,FD").
	ProductionCodes string `mapstructure:"PRODUCTION_CODES"`
	// SessionCookieName is the cookie carrying the JWT with cid/eid claims.
	SessionCookieName string `mapstructure:"SESSION_COOKIE_NAME"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Event fan-out (optional). When Kafka brokers are set, the worker
	// publishes persisted events to Kafka.
	// KafkaBrokers is a comma-separated list of broker addresses.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the Kafka topic for persisted events.
	KafkaTopic string `mapstructure:"TRACKING_KAFKA_TOPIC"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI). Env vars
// override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("QUEUE_CAPACITY", 500000)
	v.SetDefault("PRODUCTION_CODES", "PT,PY,FD")
	v.SetDefault("SESSION_COOKIE_NAME", "__ModuleSessionCookie")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TRACKING_KAFKA_TOPIC", "tracklix-events")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.QueueCapacity <= 0 {
		return nil, errors.New("config: QUEUE_CAPACITY must be positive")
	}
	if len(cfg.ProductionCodesList()) == 0 {
		return nil, errors.New("config: PRODUCTION_CODES must name at least one code")
	}
	if cfg.DatabaseURL == "" && cfg.Env == "production" {
		return nil, errors.New("config: DATABASE_URL must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// ProductionCodesList returns the production codes from the comma-separated
// config, trimmed and without empty entries.
func (c *Config) ProductionCodesList() []string {
	if c == nil {
		return nil
	}
	return splitCSV(c.ProductionCodes)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated
// config. Used to decide if event fan-out is enabled (non-empty list) and
// to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitCSV(c.KafkaBrokers)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
