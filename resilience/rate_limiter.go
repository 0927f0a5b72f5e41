package resilience

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned by Wait when the next token is further away
// than MaxWait.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig paces calls to one provider family, such as a media
// host that throttles scrapers.
type RateLimiterConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	// Rate is calls per second.
	Rate  float64 `yaml:"rate" mapstructure:"rate"`
	Burst int     `yaml:"burst" mapstructure:"burst"`
	// MaxWait bounds how long a call queues for a token. Zero queues for as
	// long as the caller's context allows.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// RateLimiter is a token bucket.
type RateLimiter struct {
	cfg     RateLimiterConfig
	limiter *rate.Limiter
}

func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(1, int(cfg.Rate))
	}
	return &RateLimiter{cfg: cfg, limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)}
}

// Allow takes a token if one is free right now.
func (rl *RateLimiter) Allow() bool { return rl.limiter.Allow() }

// Wait blocks until a token is free. A token more than MaxWait away is
// refused with ErrRateLimited without waiting, and is not consumed.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.cfg.MaxWait <= 0 {
		return rl.limiter.Wait(ctx)
	}
	r := rl.limiter.Reserve()
	delay := r.Delay()
	if !r.OK() || delay > rl.cfg.MaxWait {
		r.Cancel()
		return ErrRateLimited
	}
	if delay == 0 {
		return nil
	}
	if err := sleep(ctx, delay); err != nil {
		r.Cancel()
		return err
	}
	return nil
}

func (rl *RateLimiter) Burst() int { return rl.cfg.Burst }

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
