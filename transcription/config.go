package transcription

import (
	"time"

	"github.com/kbukum/mediascribe/source"
	"github.com/kbukum/mediascribe/validation"
)

// Config configures the cache and the invoker.
type Config struct {
	// Backend selects the loader: "whisper" or "whispercpp".
	Backend string `yaml:"backend" mapstructure:"backend"`

	// LoadTimeout bounds one model load. Zero means no bound. A load keeps
	// running when the job that started it is canceled, since other jobs
	// may be waiting for the same model.
	LoadTimeout time.Duration `yaml:"load_timeout" mapstructure:"load_timeout"`

	// Timeout bounds one transcription call. Zero leaves it to the
	// caller's deadline, which suits long recordings.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Preload lists selectors loaded at startup.
	Preload []string `yaml:"preload" mapstructure:"preload"`
}

// Backend names.
const (
	BackendWhisper    = "whisper"
	BackendWhisperCPP = "whispercpp"
)

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendWhisper
	}
	if c.LoadTimeout == 0 {
		c.LoadTimeout = 30 * time.Minute
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	_, err := c.PreloadSelectors()
	return validation.New().
		Required("backend", c.Backend).
		OneOf("backend", c.Backend, []string{BackendWhisper, BackendWhisperCPP}).
		NonNegative("load_timeout", c.LoadTimeout).
		NonNegative("timeout", c.Timeout).
		Check("preload", err).
		Err()
}

// PreloadSelectors parses Preload.
func (c *Config) PreloadSelectors() ([]source.Selector, error) {
	out := make([]source.Selector, 0, len(c.Preload))
	for _, s := range c.Preload {
		sel, err := source.ParseSelector(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}
