package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/mediascribe/provider"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "mediascribe"
)

// Config configures the HTTP client.
type Config struct {
	// Name identifies the client in logs, metrics and circuit breakers.
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is the base URL prepended to relative request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds buffered requests. Streaming requests are bounded by
	// their context only. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is sent with every request unless a request overrides it.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Auth is applied to every request that does not carry its own.
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`

	// Resilience wraps buffered requests. Streaming requests only pass the
	// rate limiter and circuit breaker since a body cannot be replayed.
	Resilience provider.ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "http"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("httpclient: %w", err)
	}
	return nil
}
