package main

import (
	"fmt"
	"time"

	"github.com/kbukum/mediascribe/acquire"
	"github.com/kbukum/mediascribe/acquire/direct"
	"github.com/kbukum/mediascribe/acquire/youtube"
	"github.com/kbukum/mediascribe/acquire/ytdlp"
	"github.com/kbukum/mediascribe/audio"
	"github.com/kbukum/mediascribe/bootstrap"
	"github.com/kbukum/mediascribe/config"
	"github.com/kbukum/mediascribe/job"
	"github.com/kbukum/mediascribe/observability"
	"github.com/kbukum/mediascribe/server"
	"github.com/kbukum/mediascribe/transcription"
	"github.com/kbukum/mediascribe/transcription/whisper"
	"github.com/kbukum/mediascribe/transcription/whispercpp"
	"github.com/kbukum/mediascribe/validation"
	"github.com/kbukum/mediascribe/version"
	"github.com/kbukum/mediascribe/workspace"
)

// Config is the root configuration of the mediascribe binary.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Workspace     workspace.Config     `yaml:"workspace" mapstructure:"workspace"`
	Job           job.Config           `yaml:"job" mapstructure:"job"`
	Acquire       acquire.Config       `yaml:"acquire" mapstructure:"acquire"`
	YouTube       youtube.Config       `yaml:"youtube" mapstructure:"youtube"`
	YTDLP         ytdlp.Config         `yaml:"ytdlp" mapstructure:"ytdlp"`
	Direct        direct.Config        `yaml:"direct" mapstructure:"direct"`
	Audio         audio.Config         `yaml:"audio" mapstructure:"audio"`
	Transcription transcription.Config `yaml:"transcription" mapstructure:"transcription"`
	Whisper       whisper.Config       `yaml:"whisper" mapstructure:"whisper"`
	WhisperCPP    whispercpp.Config    `yaml:"whispercpp" mapstructure:"whispercpp"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Shutdown      ShutdownConfig       `yaml:"shutdown" mapstructure:"shutdown"`
}

// ShutdownConfig bounds graceful shutdown. A running job is canceled when
// the process stops, so these only cover releasing components.
type ShutdownConfig struct {
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	ComponentTimeout time.Duration `yaml:"component_timeout" mapstructure:"component_timeout"`
}

func (c *ShutdownConfig) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.ComponentTimeout <= 0 {
		c.ComponentTimeout = 5 * time.Second
	}
}

func (c *ShutdownConfig) validate() error {
	return validation.New().
		Custom(c.ComponentTimeout <= c.Timeout, "component_timeout", "must not exceed timeout").
		Err()
}

func (c *ShutdownConfig) options() []bootstrap.Option {
	return []bootstrap.Option{
		bootstrap.WithGracefulTimeout(c.Timeout),
		bootstrap.WithComponentStopTimeout(c.ComponentTimeout),
	}
}

// ApplyDefaults fills every section. The whisper.cpp backend only reads
// WAV, so it turns audio normalization on.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Version == "" {
		c.Version = version.Version
	}
	c.Server.ApplyDefaults()
	c.Workspace.ApplyDefaults()
	c.Job.ApplyDefaults()
	c.Acquire.ApplyDefaults()
	c.YTDLP.ApplyDefaults()
	if c.Direct.HTTP.UserAgent == "" {
		c.Direct.HTTP.UserAgent = version.UserAgent()
	}
	c.Direct.ApplyDefaults()
	c.Transcription.ApplyDefaults()
	if c.Transcription.Backend == transcription.BackendWhisperCPP {
		c.Audio.Normalize = true
	}
	c.Audio.ApplyDefaults()
	c.Whisper.ApplyDefaults()
	c.WhisperCPP.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Shutdown.applyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	checks := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Validate},
		{"workspace", c.Workspace.Validate},
		{"job", c.Job.Validate},
		{"acquire", c.Acquire.Validate},
		{"ytdlp", c.YTDLP.Validate},
		{"direct.http", c.Direct.HTTP.Validate},
		{"audio", c.Audio.Validate},
		{"transcription", c.Transcription.Validate},
		{"observability", c.Observability.Validate},
		{"shutdown", c.Shutdown.validate},
	}
	for _, check := range checks {
		if err := check.fn(); err != nil {
			return fmt.Errorf("%s: %w", check.name, err)
		}
	}
	return nil
}
