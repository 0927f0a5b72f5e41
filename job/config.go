package job

import (
	"time"

	"github.com/kbukum/mediascribe/validation"
)

// Config configures the orchestrator.
type Config struct {
	// Timeout bounds a whole job. Zero leaves it to the caller's context.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// ProgressStep is the smallest change in fraction recorded as a progress
	// event. Every report still reaches the caller's sink. Defaults to 0.01.
	ProgressStep float64 `yaml:"progress_step" mapstructure:"progress_step"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.ProgressStep <= 0 {
		c.ProgressStep = 0.01
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return validation.New().
		NonNegative("timeout", c.Timeout).
		Custom(c.ProgressStep < 1, "progress_step", "must be below 1").
		Err()
}
