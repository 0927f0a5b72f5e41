package resilience

import (
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/mediascribe/errors"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	// StateHalfOpen lets HalfOpenMaxCalls probes through after Timeout.
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrCircuitOpen matches every rejection from an open breaker.
var ErrCircuitOpen = stderrors.New("circuit breaker is open")

// OpenError is returned instead of calling fn while the breaker is open or
// out of half-open probes. RetryIn is the time left until the next probe,
// zero when a probe is already in flight.
type OpenError struct {
	Name    string
	RetryIn time.Duration
}

func (e *OpenError) Error() string {
	if e.RetryIn > 0 {
		return fmt.Sprintf("circuit breaker %q is open, next probe in %s", e.Name, e.RetryIn.Round(time.Second))
	}
	return fmt.Sprintf("circuit breaker %q is open, probe in flight", e.Name)
}

func (e *OpenError) Is(target error) bool { return target == ErrCircuitOpen }

// CircuitBreakerConfig configures a breaker around one backend, such as a
// yt-dlp binary or a whisper sidecar.
type CircuitBreakerConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	// MaxFailures consecutive failures open the breaker.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures"`
	// Timeout is how long the breaker stays open before probing.
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls"`
	// IsFailure decides which errors count. Defaults to errors.IsTransient,
	// so a missing video or unsupported stream never opens the breaker.
	IsFailure     func(error) bool                  `yaml:"-" mapstructure:"-"`
	OnStateChange func(name string, from, to State) `yaml:"-" mapstructure:"-"`
}

func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
		IsFailure:        errors.IsTransient,
	}
}

// CircuitBreaker fails fast while a backend keeps failing.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	// probes admitted and succeeded in the current half-open window
	probes, passed int
}

func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	d := DefaultCircuitBreakerConfig(config.Name)
	if config.MaxFailures <= 0 {
		config.MaxFailures = d.MaxFailures
	}
	if config.Timeout <= 0 {
		config.Timeout = d.Timeout
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = d.HalfOpenMaxCalls
	}
	if config.IsFailure == nil {
		config.IsFailure = d.IsFailure
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Execute calls fn unless the breaker rejects it with an *OpenError.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.advance()
}

// Failures is the current run of consecutive failures.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.advance() {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if cb.probes < cb.config.HalfOpenMaxCalls {
			cb.probes++
			return nil
		}
		return &OpenError{Name: cb.config.Name}
	default:
		return &OpenError{Name: cb.config.Name, RetryIn: cb.openedAt.Add(cb.config.Timeout).Sub(cb.now())}
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := err != nil && cb.config.IsFailure(err)
	state := cb.advance()
	switch {
	case failed && state == StateHalfOpen:
		cb.failures++
		cb.transition(StateOpen)
	case failed:
		cb.failures++
		if state == StateClosed && cb.failures >= cb.config.MaxFailures {
			cb.transition(StateOpen)
		}
	case state == StateHalfOpen:
		cb.passed++
		if cb.passed >= cb.config.HalfOpenMaxCalls {
			cb.transition(StateClosed)
		}
	default:
		cb.failures = 0
	}
}

// advance moves an expired open breaker to half-open and returns the state.
// Callers hold mu.
func (cb *CircuitBreaker) advance() State {
	if cb.state == StateOpen && !cb.now().Before(cb.openedAt.Add(cb.config.Timeout)) {
		cb.transition(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	cb.probes, cb.passed = 0, 0
	switch to {
	case StateClosed:
		cb.failures = 0
	case StateOpen:
		cb.openedAt = cb.now()
	}
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
