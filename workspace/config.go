package workspace

import (
	"os"
	"strings"
	"time"

	"github.com/kbukum/mediascribe/validation"
)

// Config configures where job workspaces are created.
type Config struct {
	// Root is the parent directory. Defaults to os.TempDir().
	Root string `yaml:"root" mapstructure:"root"`
	// Prefix starts every workspace directory name. Defaults to "mediascribe-".
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	// StaleAfter is the age past which leftover workspaces from a crashed
	// process are swept at startup. Zero disables the sweep.
	StaleAfter time.Duration `yaml:"stale_after" mapstructure:"stale_after"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Root == "" {
		c.Root = os.TempDir()
	}
	if c.Prefix == "" {
		c.Prefix = "mediascribe-"
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return validation.New().
		Required("prefix", c.Prefix).
		Custom(!strings.ContainsAny(c.Prefix, `/\`), "prefix", "must not contain a path separator").
		NonNegative("stale_after", c.StaleAfter).
		Err()
}
