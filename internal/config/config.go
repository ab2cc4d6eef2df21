// Package config loads registry configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the casefile registry. Every field
// comes from the environment; `casefile serve --help` documents the same
// knobs as flags. A .env file, when present, is loaded by main before
// this package reads anything.
type Config struct {
	// DBPath is the SQLite database file. ":memory:" is accepted for
	// throwaway registries.
	DBPath string `env:"CASEFILE_DB_PATH" env-default:"casefile.db" env-description:"SQLite database path"`

	// Logging
	LogLevel string `env:"CASEFILE_LOG_LEVEL" env-default:"info" env-description:"log level: debug, info, warn, error"`
	LogJSON  bool   `env:"CASEFILE_LOG_JSON" env-default:"false" env-description:"emit JSON logs instead of pretty output"`

	// CacheTTL bounds how long a cached search result may be served.
	CacheTTL time.Duration `env:"CASEFILE_CACHE_TTL" env-default:"5m" env-description:"search cache entry lifetime"`

	// ImportWorkers is the number of concurrent file importers.
	ImportWorkers int `env:"CASEFILE_IMPORT_WORKERS" env-default:"4" env-description:"concurrent import workers"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.ImportWorkers < 1 {
		return fmt.Errorf("import workers must be at least 1, got %d", c.ImportWorkers)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache TTL must not be negative, got %s", c.CacheTTL)
	}
	return nil
}
