package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/kbukum/mediascribe/errors"
)

// RetryConfig controls how often and how patiently a call is repeated.
type RetryConfig struct {
	// MaxAttempts counts the first call.
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	// Jitter spreads each backoff by up to this fraction either way.
	Jitter float64 `yaml:"jitter" mapstructure:"jitter"`
	// RetryIf defaults to errors.IsTransient.
	RetryIf func(error) bool                                    `yaml:"-" mapstructure:"-"`
	OnRetry func(attempt int, err error, backoff time.Duration) `yaml:"-" mapstructure:"-"`
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryIf:        errors.IsTransient,
	}
}

func (c *RetryConfig) applyDefaults() {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = d.BackoffFactor
	}
	if c.RetryIf == nil {
		c.RetryIf = d.RetryIf
	}
}

// Retry calls fn until it succeeds, fails with an error RetryIf rejects, or
// runs out of attempts. The last error is returned as is. When the error
// carries a retry-after hint the wait is at least that long, still capped
// at MaxBackoff.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	cfg.applyDefaults()
	var zero T
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if attempt >= cfg.MaxAttempts || !cfg.RetryIf(err) {
			return zero, err
		}

		wait := max(Backoff(attempt, cfg), min(retryAfter(err), cfg.MaxBackoff))
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

// Backoff is InitialBackoff * BackoffFactor^(attempt-1), jittered, capped
// at MaxBackoff.
func Backoff(attempt int, cfg RetryConfig) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	if cfg.Jitter > 0 {
		d *= 1 + cfg.Jitter*(2*rand.Float64()-1)
	}
	switch {
	case d > float64(cfg.MaxBackoff):
		return cfg.MaxBackoff
	case d <= 0:
		return cfg.InitialBackoff
	}
	return time.Duration(d)
}

func retryAfter(err error) time.Duration {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.RetryAfter()
	}
	return 0
}
