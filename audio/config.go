package audio

import (
	"time"

	"github.com/kbukum/mediascribe/validation"
)

// Config configures audio normalization.
type Config struct {
	// Normalize enables ffmpeg conversion before transcription. Engines that
	// only read WAV (whisper.cpp) need it; the whisper sidecar decodes
	// anything itself.
	Normalize bool `yaml:"normalize" mapstructure:"normalize"`

	// Binary is the ffmpeg executable. Defaults to "ffmpeg".
	Binary string `yaml:"binary" mapstructure:"binary"`

	// SampleRate of the output in Hz. Defaults to 16000.
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate"`

	// Channels of the output. Defaults to 1.
	Channels int `yaml:"channels" mapstructure:"channels"`

	// Timeout bounds one conversion. Defaults to 10m.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = "ffmpeg"
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return validation.New().
		Required("binary", c.Binary).
		Between("channels", c.Channels, 1, 2).
		Between("sample_rate", c.SampleRate, 8000, 48000).
		NonNegative("timeout", c.Timeout).
		Err()
}
