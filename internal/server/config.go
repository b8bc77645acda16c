// Package server provides configuration loading and validation for the
// PairChat service.
package server

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

var validate = validator.New()

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
// Fields are loaded from the environment by NewConfigFromEnv; NewConfig
// returns the built-in defaults.
type Config struct {
	Port            string        `envconfig:"SERVER_PORT" default:":8080"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080" validate:"min=1"`
	MaxMessageSize  int64         `envconfig:"MAX_MESSAGE_SIZE" default:"4096" validate:"gt=0"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"5" validate:"gt=0"`
	RateLimitRefill time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s" validate:"gt=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
}

// NewConfig creates a Config populated with default values for all settings.
func NewConfig() *Config {
	return &Config{
		Port:            ":8080",
		AllowedOrigins:  []string{"http://localhost:8080"},
		MaxMessageSize:  4096,
		RateLimitBurst:  5,
		RateLimitRefill: time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// NewConfigFromEnv creates a Config from environment variables, falling back
// to defaults for variables that are not set. Returns an error when a value
// cannot be parsed or fails validation.
func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// rateLimit bundles the rate limiting fields for client construction.
func (c *Config) rateLimit() RateLimitConfig {
	return RateLimitConfig{
		Burst:          c.RateLimitBurst,
		RefillInterval: c.RateLimitRefill,
	}
}
