package upstream

import (
	"fmt"
	"strings"
	"time"
)

// Config holds upstream service configuration
type Config struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"` // request timeout, e.g. "60s"

	// APIKey is the service-level key used by background workers (consumer,
	// MCP mode). Interactive callers supply their own key per request.
	APIKey string `toml:"api_key"`
}

// Validate checks upstream configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url is required")
	}

	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("timeout is invalid: %v", err)
		}
	}

	return nil
}

// RequestTimeout returns the parsed request timeout, defaulting to 60s
func (c *Config) RequestTimeout() time.Duration {
	if c.Timeout == "" {
		return 60 * time.Second
	}

	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}
