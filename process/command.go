package process

import (
	"context"
	"io"
	"time"
)

// Command configures a subprocess to execute.
type Command struct {
	// Binary is resolved via PATH when it has no slash.
	Binary string
	Args   []string
	// Env is appended to os.Environ.
	Env   []string
	Stdin io.Reader
	// GracePeriod separates SIGTERM from SIGKILL on cancellation. Zero
	// means 5s.
	GracePeriod time.Duration
	// OnStdoutLine and OnStderrLine see each line as it is written.
	OnStdoutLine func(line string)
	OnStderrLine func(line string)
}

// Executor runs commands. Components take an Executor so tests can substitute a fake.
type Executor interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, cmd Command) (*Result, error)

func (f ExecutorFunc) Run(ctx context.Context, cmd Command) (*Result, error) {
	return f(ctx, cmd)
}

// Local runs commands on the local machine via Run.
var Local Executor = ExecutorFunc(Run)
