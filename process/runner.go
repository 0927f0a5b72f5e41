package process

import (
	"context"

	"github.com/kbukum/mediascribe/provider"
)

// Runner executes subprocesses through persistent resilience state, so a
// binary that keeps crashing trips the circuit breaker across calls.
type Runner struct {
	exec  Executor
	state *provider.ResilienceState
}

// NewRunner creates a Runner backed by exec (Local when nil).
// Empty config makes Run a plain passthrough.
func NewRunner(exec Executor, cfg provider.ResilienceConfig) *Runner {
	if exec == nil {
		exec = Local
	}
	return &Runner{exec: exec, state: provider.BuildResilience(cfg)}
}

// Run executes cmd through the resilience chain.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	return provider.ExecuteWithResilience(ctx, r.state, func() (*Result, error) {
		return r.exec.Run(ctx, cmd)
	})
}
