package monitoring

import (
	"fmt"
	"strings"
)

// Config holds configuration for monitoring service
type Config struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path"    mapstructure:"path"`
}

// DefaultConfig returns default monitoring configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Path:    "/metrics",
	}
}

// reservedPaths are served by the API itself and cannot host the exporter.
var reservedPaths = []string{"/resolve", "/health", "/readyz", "/api-docs", "/api-docs.json"}

// Validate validates the monitoring configuration
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("monitoring path cannot be empty")
	}
	if c.Path[0] != '/' {
		return fmt.Errorf("monitoring path must start with '/': got %s", c.Path)
	}
	if strings.ContainsRune(c.Path, '?') {
		return fmt.Errorf("monitoring path cannot contain query parameters")
	}
	for _, p := range reservedPaths {
		if c.Path == p || strings.HasPrefix(c.Path, p+"/") {
			return fmt.Errorf("monitoring path conflicts with API route %s", p)
		}
	}
	return nil
}
