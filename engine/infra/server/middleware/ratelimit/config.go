package ratelimit

import (
	"fmt"
	"time"

	"github.com/ulule/limiter/v3"
)

// Config represents rate limiting configuration
type Config struct {
	// Per client IP rate
	Rate RateConfig `mapstructure:"rate"`

	// Key prefix inside the store
	Prefix string `mapstructure:"prefix"`
}

// RateConfig represents a single rate limit configuration
type RateConfig struct {
	Period time.Duration `mapstructure:"period"`
	Limit  int64         `mapstructure:"limit"`
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() *Config {
	return &Config{
		Rate: RateConfig{
			Limit:  60,
			Period: 1 * time.Minute,
		},
		Prefix: "renovate-resolver:ratelimit:",
	}
}

// ToLimiterRate converts RateConfig to limiter.Rate
func (rc RateConfig) ToLimiterRate() limiter.Rate {
	return limiter.Rate{
		Period: rc.Period,
		Limit:  rc.Limit,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Rate.Limit <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.Rate.Period <= 0 {
		return fmt.Errorf("rate limit period must be positive")
	}
	return nil
}
