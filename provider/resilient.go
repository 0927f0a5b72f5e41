package provider

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/resilience"
)

// ResilienceConfig bundles optional resilience policies for a provider.
// Nil fields are skipped.
type ResilienceConfig struct {
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	Retry          *resilience.RetryConfig          `yaml:"retry" mapstructure:"retry"`
	RateLimiter    *resilience.RateLimiterConfig    `yaml:"rate_limiter" mapstructure:"rate_limiter"`
	Bulkhead       *resilience.BulkheadConfig       `yaml:"bulkhead" mapstructure:"bulkhead"`
}

// IsEmpty returns true if no resilience policies are configured.
func (c ResilienceConfig) IsEmpty() bool {
	return c.CircuitBreaker == nil && c.Retry == nil && c.RateLimiter == nil && c.Bulkhead == nil
}

// ResilienceState holds initialized resilience primitives built from config.
// One state is shared by every call through the wrapped provider.
type ResilienceState struct {
	cb       *resilience.CircuitBreaker
	rl       *resilience.RateLimiter
	bh       *resilience.Bulkhead
	retryCfg *resilience.RetryConfig
}

// BuildResilience creates initialized resilience primitives from config.
func BuildResilience(cfg ResilienceConfig) *ResilienceState {
	if cfg.IsEmpty() {
		return nil
	}
	s := &ResilienceState{retryCfg: cfg.Retry}
	if cfg.CircuitBreaker != nil {
		s.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	if cfg.RateLimiter != nil {
		s.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	if cfg.Bulkhead != nil {
		s.bh = resilience.NewBulkhead(*cfg.Bulkhead)
	}
	return s
}

// CircuitState reports the breaker state, or closed when no breaker is configured.
func (s *ResilienceState) CircuitState() resilience.State {
	if s == nil || s.cb == nil {
		return resilience.StateClosed
	}
	return s.cb.State()
}

// Available reports false while the circuit breaker is open.
func (s *ResilienceState) Available() bool {
	return s.CircuitState() != resilience.StateOpen
}

// WithoutRetry returns a view sharing the breaker and rate limiter but with no
// retry or bulkhead, for calls whose input cannot be replayed.
func (s *ResilienceState) WithoutRetry() *ResilienceState {
	if s == nil || (s.cb == nil && s.rl == nil) {
		return nil
	}
	return &ResilienceState{cb: s.cb, rl: s.rl}
}

// WithResilience wraps a RequestResponse provider with resilience policies.
// Execution chain: RateLimiter → Bulkhead → CircuitBreaker → Retry → Execute.
// Empty config returns the provider unchanged.
func WithResilience[I, O any](p RequestResponse[I, O], cfg ResilienceConfig) RequestResponse[I, O] {
	if cfg.IsEmpty() {
		return p
	}
	return &resilientRR[I, O]{inner: p, state: BuildResilience(cfg)}
}

type resilientRR[I, O any] struct {
	inner RequestResponse[I, O]
	state *ResilienceState
}

func (r *resilientRR[I, O]) Name() string { return r.inner.Name() }

// IsAvailable reports false while the circuit is open so callers can skip the provider.
func (r *resilientRR[I, O]) IsAvailable(ctx context.Context) bool {
	if !r.state.Available() {
		return false
	}
	return r.inner.IsAvailable(ctx)
}

func (r *resilientRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return ExecuteWithResilience(ctx, r.state, func() (O, error) {
		return r.inner.Execute(ctx, input)
	})
}

// ExecuteWithResilience runs fn through the resilience chain:
// RateLimiter.Wait → Bulkhead → CircuitBreaker → Retry → fn.
// Errors from the primitives themselves are converted to AppErrors; errors
// from fn pass through untouched so their taxonomy survives.
func ExecuteWithResilience[T any](ctx context.Context, s *ResilienceState, fn func() (T, error)) (T, error) {
	if s == nil {
		return fn()
	}

	if s.rl != nil {
		if err := s.rl.Wait(ctx); err != nil {
			var zero T
			return zero, wrapResilienceError(err)
		}
	}

	call := fn
	if s.retryCfg != nil {
		retryCfg := *s.retryCfg
		call = func() (T, error) {
			return resilience.Retry(ctx, retryCfg, fn)
		}
	}

	if s.cb != nil {
		inner := call
		call = func() (T, error) {
			var result T
			var resultErr error
			cbErr := s.cb.Execute(func() error {
				result, resultErr = inner()
				return resultErr
			})
			if cbErr != nil && resultErr == nil {
				return result, wrapResilienceError(cbErr)
			}
			return result, resultErr
		}
	}

	if s.bh != nil {
		var result T
		var resultErr error
		bhErr := s.bh.Execute(ctx, func() error {
			result, resultErr = call()
			return resultErr
		})
		if bhErr != nil && resultErr == nil {
			return result, wrapResilienceError(bhErr)
		}
		return result, resultErr
	}

	return call()
}

// wrapResilienceError converts resilience sentinel errors to AppErrors.
func wrapResilienceError(err error) error {
	if err == nil || errors.IsAppError(err) {
		return err
	}
	switch {
	case stderrors.Is(err, resilience.ErrCircuitOpen):
		appErr := errors.ServiceUnavailable("provider").WithCause(err).WithDetail("reason", "circuit open")
		var open *resilience.OpenError
		if stderrors.As(err, &open) && open.RetryIn > 0 {
			appErr = appErr.WithDetail(errors.DetailRetryAfter, open.RetryIn.Round(time.Second).String())
		}
		return appErr
	case stderrors.Is(err, resilience.ErrRateLimited):
		return errors.RateLimited().WithCause(err)
	case stderrors.Is(err, resilience.ErrBulkheadFull), stderrors.Is(err, resilience.ErrBulkheadTimeout):
		return errors.ServiceUnavailable("provider").WithCause(err).WithDetail("reason", "concurrency limit reached")
	case stderrors.Is(err, context.Canceled):
		return errors.Canceled("request").WithCause(err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout("request").WithCause(err)
	default:
		return err
	}
}
