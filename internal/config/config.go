// Package config loads insightdash settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// State storage formats.
const (
	StateSQLite = "sqlite"
	StateYAML   = "yaml"
	StateMemory = "memory"
)

// Config holds process-wide settings. CLI flags override these values.
type Config struct {
	// APIBaseURL is the REST API root. Empty means same-origin relative
	// paths, which only work behind a proxy.
	APIBaseURL     string        `env:"INSIGHTDASH_API_BASE_URL" envDefault:""`
	UploadMaxMB    int64         `env:"INSIGHTDASH_UPLOAD_MAX_MB" envDefault:"50"`
	StatePath      string        `env:"INSIGHTDASH_STATE_PATH" envDefault:"insightdash.db"`
	StateFormat    string        `env:"INSIGHTDASH_STATE_FORMAT" envDefault:"sqlite"`
	RequestTimeout time.Duration `env:"INSIGHTDASH_REQUEST_TIMEOUT" envDefault:"30s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges env tags cannot express.
func (c Config) Validate() error {
	switch c.StateFormat {
	case StateSQLite, StateYAML, StateMemory:
	default:
		return fmt.Errorf("state format %q: must be one of sqlite, yaml, memory", c.StateFormat)
	}
	if c.UploadMaxMB <= 0 {
		return fmt.Errorf("upload max must be positive, got %d MB", c.UploadMaxMB)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative, got %s", c.RequestTimeout)
	}
	return nil
}

// UploadMaxBytes is UploadMaxMB in bytes.
func (c Config) UploadMaxBytes() int64 {
	return c.UploadMaxMB << 20
}
