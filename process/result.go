package process

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBinaryNotFound is returned when the executable cannot be located.
var ErrBinaryNotFound = errors.New("process: binary not found")

// Result holds the output and status of a completed subprocess.
type Result struct {
	// Stdout is the captured standard output.
	Stdout []byte
	// Stderr is the captured standard error.
	Stderr []byte
	// ExitCode is the process exit code. -1 if the process was killed or never started.
	ExitCode int
	// Duration is how long the process ran.
	Duration time.Duration
}

// StderrTail returns the last n non-empty stderr lines joined by newlines.
func (r *Result) StderrTail(n int) string {
	if r == nil {
		return ""
	}
	var lines []string
	for _, line := range bytes.Split(bytes.TrimSpace(r.Stderr), []byte("\n")) {
		if l := strings.TrimSpace(string(line)); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// ExitError reports a process that ran and exited non-zero.
type ExitError struct {
	Binary   string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("process: %s exited with code %d", e.Binary, e.ExitCode)
	}
	return fmt.Sprintf("process: %s exited with code %d: %s", e.Binary, e.ExitCode, e.Stderr)
}
