package resilience

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/kbukum/mediascribe/errors"
)

func TestCircuitBreaker_OpensOnTransientFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "youtube", MaxFailures: 2, Timeout: time.Minute})
	fail := func() error { return errors.Transient("fetch", "502") }

	_ = cb.Execute(fail)
	if cb.State() != StateClosed {
		t.Fatal("breaker should stay closed below threshold")
	}
	_ = cb.Execute(fail)
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}
	err := cb.Execute(func() error { return nil })
	if !stderrors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	var open *OpenError
	if !stderrors.As(err, &open) || open.Name != "youtube" || open.RetryIn <= 0 || open.RetryIn > time.Minute {
		t.Errorf("expected OpenError with time to next probe, got %#v", err)
	}
}

func TestCircuitBreaker_HalfOpenProbeLimit(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "whisper", MaxFailures: 1, Timeout: time.Second})
	now := time.Now()
	cb.now = func() time.Time { return now }
	_ = cb.Execute(func() error { return errors.Transient("transcribe", "503") })
	now = now.Add(time.Second)

	started, release := make(chan struct{}), make(chan struct{})
	done := make(chan error)
	go func() {
		done <- cb.Execute(func() error { close(started); <-release; return nil })
	}()
	<-started

	err := cb.Execute(func() error { return nil })
	var open *OpenError
	if !stderrors.As(err, &open) || open.RetryIn != 0 {
		t.Fatalf("second call during a probe should be rejected with no wait, got %v", err)
	}
	if got := open.Error(); got != `circuit breaker "whisper" is open, probe in flight` {
		t.Errorf("unexpected message %q", got)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("successful probe should close, got %s", cb.State())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second})
	now := time.Now()
	cb.now = func() time.Time { return now }
	fail := func() error { return errors.Timeout("probe") }

	_ = cb.Execute(fail)
	now = now.Add(time.Second)
	_ = cb.Execute(fail)
	if cb.State() != StateOpen {
		t.Fatalf("failed probe should reopen, got %s", cb.State())
	}
	err := cb.Execute(func() error { return nil })
	var open *OpenError
	if !stderrors.As(err, &open) || open.RetryIn != time.Second {
		t.Errorf("open window should restart at the failed probe, got %v", err)
	}
}

func TestCircuitBreaker_IgnoresContentErrors(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errors.NotFound("video", "") })
		_ = cb.Execute(func() error { return errors.Unsupported("live stream") })
	}
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Fatalf("content errors must not trip the breaker: %s, %d", cb.State(), cb.Failures())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name: "x", MaxFailures: 1, Timeout: time.Second,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	now := time.Now()
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errors.Timeout("probe") })
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}

	now = now.Add(2 * time.Second)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open after timeout, got %s", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", cb.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	_ = cb.Execute(func() error { return errors.Transient("x", "y") })
	cb.Reset()
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Fatal("reset should close the breaker")
	}
}
