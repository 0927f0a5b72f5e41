package logger

import (
	"slices"

	"github.com/kbukum/mediascribe/validation"
)

var (
	Levels  = []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
	Formats = []string{"json", "console", FormatPretty}
	Outputs = []string{"stderr", "stdout", "discard"}
)

// Config is the logging section.
type Config struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	// Output is stderr by default so a transcript printed to stdout stays
	// clean when piped.
	Output    string `yaml:"output" mapstructure:"output"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`

	// Components overrides the level per component logger, keyed by the
	// dotted name passed to Get (e.g. "acquire.ytdlp: debug").
	Components map[string]string `yaml:"components" mapstructure:"components"`
}

func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
	c.Timestamp = true
}

func (c *Config) Validate() error {
	v := validation.New().
		OneOf("level", c.Level, Levels).
		OneOf("format", c.Format, Formats).
		OneOf("output", c.Output, Outputs)
	names := make([]string, 0, len(c.Components))
	for name := range c.Components {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		v.OneOf("components."+name, c.Components[name], Levels)
	}
	return v.Err()
}
