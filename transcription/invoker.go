package transcription

import (
	"context"
	"time"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/logger"
)

// Invoker runs one engine call and maps its failures.
type Invoker struct {
	timeout time.Duration
	log     *logger.Logger
}

// NewInvoker creates an invoker. Only cfg.Timeout is used.
func NewInvoker(cfg Config) *Invoker {
	return &Invoker{timeout: cfg.Timeout, log: logger.Get("transcription")}
}

// Transcribe runs engine on the file at audioPath. Cancellation and the
// caller's deadline surface as CANCELED and TIMEOUT; any other failure,
// including the invoker's own timeout, is TRANSCRIPTION_FAILED. Nothing is
// retried.
func (i *Invoker) Transcribe(ctx context.Context, audioPath string, engine Engine) (*Transcript, error) {
	if engine == nil {
		return nil, errors.TranscriptionFailed("no engine", nil)
	}
	parent := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	t, err := engine.Transcribe(ctx, audioPath)
	if err != nil {
		if stopped := errors.Interrupted(parent, "transcription"); stopped != nil {
			return nil, stopped.WithCause(err)
		}
		return nil, i.mapError(ctx, engine, err)
	}
	if t == nil {
		return nil, errors.TranscriptionFailed("engine returned no transcript", nil).WithDetail("engine", engine.Name())
	}
	i.log.WithContext(ctx).Debug("transcribed", logger.Fields(
		"engine", engine.Name(),
		logger.FieldDuration, time.Since(start).Milliseconds(),
		"chars", len(t.Text),
		"segments", len(t.Segments),
	))
	return t, nil
}

func (i *Invoker) mapError(ctx context.Context, engine Engine, err error) error {
	if errors.Is(err, errors.ErrCodeCanceled) {
		return err
	}
	if errors.Is(err, errors.ErrCodeTranscriptionFailed) {
		return err
	}
	reason := "engine error"
	if appErr, ok := errors.AsAppError(err); ok {
		reason = appErr.Message
	}
	if ctx.Err() == context.DeadlineExceeded {
		reason = "transcription timed out"
	}
	return errors.TranscriptionFailed(reason, err).WithDetail("engine", engine.Name())
}
