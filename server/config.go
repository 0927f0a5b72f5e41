package server

import (
	"time"

	"github.com/kbukum/mediascribe/server/middleware"
	"github.com/kbukum/mediascribe/validation"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string                `yaml:"host" mapstructure:"host"`
	Port         int                   `yaml:"port" mapstructure:"port"`
	ReadTimeout  int                   `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int                   `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout  int                   `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	MaxBodySize  string                `yaml:"max_body_size" mapstructure:"max_body_size"` // e.g. "1MB"
	CORS         middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
	Jobs         JobsConfig            `yaml:"jobs" mapstructure:"jobs"`
}

// JobsConfig bounds the job API.
type JobsConfig struct {
	// MaxConcurrent is the number of jobs run at once. Further requests are
	// rejected, not queued.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// MaxWait is how long a request may wait for a free slot.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
	// History is the number of job event logs kept for late subscribers.
	History int `yaml:"history" mapstructure:"history"`
}

// ApplyDefaults sets sensible default values for unset fields. WriteTimeout
// stays 0: POST /v1/jobs answers when the job ends, which can take as long
// as the recording.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader}
	}
	if len(c.CORS.ExposedHeaders) == 0 {
		c.CORS.ExposedHeaders = []string{middleware.RequestIDHeader}
	}
	if c.Jobs.MaxConcurrent == 0 {
		c.Jobs.MaxConcurrent = 2
	}
	if c.Jobs.History == 0 {
		c.Jobs.History = 100
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	return validation.New().
		Between("port", c.Port, 0, 65535).
		Custom(c.ReadTimeout >= 0, "read_timeout", "must not be negative").
		Custom(c.WriteTimeout >= 0, "write_timeout", "must not be negative").
		Custom(c.IdleTimeout >= 0, "idle_timeout", "must not be negative").
		Custom(c.Jobs.MaxConcurrent >= 0, "jobs.max_concurrent", "must not be negative").
		Custom(c.Jobs.History >= 0, "jobs.history", "must not be negative").
		NonNegative("jobs.max_wait", c.Jobs.MaxWait).
		Err()
}
