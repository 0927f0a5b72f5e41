package bootstrap

import (
	"context"
	"fmt"
)

// Hook runs at a lifecycle point with the app's startup or shutdown
// context.
type Hook func(ctx context.Context) error

// OnReady hooks run once components are up and the ready check has been
// logged, right before Run blocks or a RunTask task starts.
func (a *App[C]) OnReady(hooks ...Hook) {
	a.onReady = append(a.onReady, hooks...)
}

// OnStop hooks run first at shutdown, while components still serve. serve
// flushes telemetry from one.
func (a *App[C]) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d: %w", i, err)
		}
	}
	return nil
}
