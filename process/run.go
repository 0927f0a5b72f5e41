package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

const stderrTailLines = 5

// Run executes a subprocess and waits for it to complete.
// If the context is canceled, SIGTERM is sent to the process group first,
// then SIGKILL after GracePeriod. The returned error wraps ctx.Err() on
// cancellation, ErrBinaryNotFound when the executable is missing, and is an
// *ExitError for a non-zero exit.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}

	gracePeriod := cmd.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = 5 * time.Second
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	c.Env = mergeEnv(cmd.Env)
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	var stdout, stderr bytes.Buffer
	outLines := newLineWriter(cmd.OnStdoutLine)
	errLines := newLineWriter(cmd.OnStderrLine)
	c.Stdout = io.MultiWriter(&stdout, outLines)
	c.Stderr = io.MultiWriter(&stderr, errLines)

	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = gracePeriod

	start := time.Now()
	err := c.Run()
	outLines.flush()
	errLines.flush()

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}
	if err == nil {
		return result, nil
	}

	switch {
	case ctx.Err() != nil:
		return result, fmt.Errorf("process: %s killed by context: %w", cmd.Binary, ctx.Err())
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return result, fmt.Errorf("%w: %s", ErrBinaryNotFound, cmd.Binary)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return result, &ExitError{Binary: cmd.Binary, ExitCode: result.ExitCode, Stderr: result.StderrTail(stderrTailLines)}
	}
	return result, fmt.Errorf("process: %s: %w", cmd.Binary, err)
}

// Available reports whether binary resolves to an executable.
func Available(binary string) bool {
	if binary == "" {
		return false
	}
	_, err := exec.LookPath(binary)
	return err == nil
}

// mergeEnv merges additional env vars with the current environment.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil
	}
	return append(os.Environ(), extra...)
}

// lineWriter splits written bytes into lines for a callback. Carriage returns
// also end a line because progress bars redraw with them.
type lineWriter struct {
	fn  func(string)
	buf []byte
}

func newLineWriter(fn func(string)) *lineWriter {
	return &lineWriter{fn: fn}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	if w.fn == nil {
		return len(p), nil
	}
	for _, b := range p {
		if b == '\n' || b == '\r' {
			w.emit()
			continue
		}
		w.buf = append(w.buf, b)
	}
	return len(p), nil
}

func (w *lineWriter) emit() {
	if len(w.buf) == 0 {
		return
	}
	w.fn(string(w.buf))
	w.buf = w.buf[:0]
}

func (w *lineWriter) flush() {
	if w.fn != nil {
		w.emit()
	}
}
