package bootstrap

import (
	"io"
	"os"
	"time"

	"github.com/kbukum/mediascribe/logger"
)

// Option configures an App independently of its config type.
type Option func(*settings)

type settings struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
	stopTimeout     time.Duration
	summaryOut      io.Writer
}

func resolveSettings(opts []Option) settings {
	s := settings{gracefulTimeout: 15 * time.Second, summaryOut: os.Stderr}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger skips building a logger from the logging section.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithGracefulTimeout bounds the whole shutdown, stop hooks included.
// Non-positive values keep the 15s default.
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.gracefulTimeout = d
		}
	}
}

// WithComponentStopTimeout bounds each component's Stop, so one stuck
// backend cannot spend the whole graceful timeout.
func WithComponentStopTimeout(d time.Duration) Option {
	return func(s *settings) { s.stopTimeout = d }
}

// WithSummaryOutput redirects the startup summary, which goes to stderr so
// that transcripts on stdout stay clean.
func WithSummaryOutput(w io.Writer) Option {
	return func(s *settings) { s.summaryOut = w }
}
