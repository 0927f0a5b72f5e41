package process_test

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/mediascribe/process"
)

func TestRunEcho(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "echo",
		Args:   []string{"hello", "world"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", result.ExitCode)
	}
	out := strings.TrimSpace(string(result.Stdout))
	if out != "hello world" {
		t.Fatalf("expected 'hello world', got %q", out)
	}
}

func TestRunStdin(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "cat",
		Stdin:  strings.NewReader("from stdin"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Stdout) != "from stdin" {
		t.Fatalf("expected 'from stdin', got %q", result.Stdout)
	}
}

func TestRunExitCode(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo first >&2; echo boom >&2; exit 42"},
	})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if result.ExitCode != 42 {
		t.Fatalf("expected exit code 42, got %d", result.ExitCode)
	}
	var exitErr *process.ExitError
	if !stderrors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T", err)
	}
	if exitErr.ExitCode != 42 || !strings.Contains(exitErr.Stderr, "boom") {
		t.Errorf("unexpected exit error: %+v", exitErr)
	}
}

func TestRunBinaryNotFound(t *testing.T) {
	_, err := process.Run(context.Background(), process.Command{
		Binary: "mediascribe-definitely-missing-binary",
	})
	if !stderrors.Is(err, process.ErrBinaryNotFound) {
		t.Fatalf("expected ErrBinaryNotFound, got %v", err)
	}
}

func TestRunEmptyBinary(t *testing.T) {
	if _, err := process.Run(context.Background(), process.Command{}); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestRunContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := process.Run(ctx, process.Command{
		Binary:      "sleep",
		Args:        []string{"10"},
		GracePeriod: 500 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error on context cancel")
	}
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("took too long to cancel: %v", elapsed)
	}
}

func TestRunEnv(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo $MEDIASCRIBE_TEST_VAR"},
		Env:    []string{"MEDIASCRIBE_TEST_VAR=hello_env"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(string(result.Stdout)); got != "hello_env" {
		t.Fatalf("expected 'hello_env', got %q", got)
	}
}

func TestRunLineCallbacks(t *testing.T) {
	var mu sync.Mutex
	var outLines, errLines []string
	_, err := process.Run(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", `printf 'one\ntwo\rthree'; printf 'warn\n' >&2`},
		OnStdoutLine: func(line string) {
			mu.Lock()
			outLines = append(outLines, line)
			mu.Unlock()
		},
		OnStderrLine: func(line string) {
			mu.Lock()
			errLines = append(errLines, line)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(outLines, ",") != "one,two,three" {
		t.Errorf("stdout lines = %v", outLines)
	}
	if len(errLines) != 1 || errLines[0] != "warn" {
		t.Errorf("stderr lines = %v", errLines)
	}
}

func TestStderrTail(t *testing.T) {
	r := &process.Result{Stderr: []byte("a\n\nb\nc\n")}
	if got := r.StderrTail(2); got != "b\nc" {
		t.Errorf("StderrTail(2) = %q", got)
	}
	var nilResult *process.Result
	if nilResult.StderrTail(3) != "" {
		t.Error("nil result should have empty tail")
	}
}

func TestAvailable(t *testing.T) {
	if !process.Available("sh") {
		t.Error("sh should be available")
	}
	if process.Available("mediascribe-definitely-missing-binary") {
		t.Error("missing binary reported available")
	}
	if process.Available("") {
		t.Error("empty binary reported available")
	}
}
