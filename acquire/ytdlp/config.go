package ytdlp

import (
	"time"

	"github.com/kbukum/mediascribe/validation"
)

// Config configures the yt-dlp adapter.
type Config struct {
	// Binary is the yt-dlp executable. Defaults to "yt-dlp".
	Binary string `yaml:"binary" mapstructure:"binary"`
	// Format is the yt-dlp format selector. Defaults to "bestaudio/best".
	Format string `yaml:"format" mapstructure:"format"`
	// AudioFormat is the extracted audio codec. Defaults to "mp3".
	AudioFormat string `yaml:"audio_format" mapstructure:"audio_format"`
	// SocketTimeout is passed to yt-dlp for every network read.
	SocketTimeout time.Duration `yaml:"socket_timeout" mapstructure:"socket_timeout"`
	// ProbeTimeout bounds the metadata probe.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
	// MaxDuration rejects longer media as unsupported. Zero disables the check.
	MaxDuration time.Duration `yaml:"max_duration" mapstructure:"max_duration"`
	// ExtraArgs are appended to every invocation (e.g. cookies, proxy).
	ExtraArgs []string `yaml:"extra_args" mapstructure:"extra_args"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = "yt-dlp"
	}
	if c.Format == "" {
		c.Format = "bestaudio/best"
	}
	if c.AudioFormat == "" {
		c.AudioFormat = "mp3"
	}
	if c.SocketTimeout == 0 {
		c.SocketTimeout = 30 * time.Second
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = time.Minute
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return validation.New().
		Required("binary", c.Binary).
		NonNegative("socket_timeout", c.SocketTimeout).
		NonNegative("probe_timeout", c.ProbeTimeout).
		NonNegative("max_duration", c.MaxDuration).
		Err()
}
