package audio

import (
	"context"
	stderrors "errors"
	"os"
	"strconv"
	"time"

	"github.com/kbukum/mediascribe/acquire"
	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/process"
	"github.com/kbukum/mediascribe/workspace"
)

// OutputName is the file the normalizer writes inside the workspace.
const OutputName = "audio-16k.wav"

// Normalizer converts artifacts to PCM WAV with ffmpeg.
type Normalizer struct {
	cfg  Config
	exec process.Executor
	log  *logger.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithExecutor replaces the subprocess executor.
func WithExecutor(e process.Executor) Option {
	return func(n *Normalizer) { n.exec = e }
}

// NewNormalizer creates a normalizer.
func NewNormalizer(cfg Config, opts ...Option) *Normalizer {
	cfg.ApplyDefaults()
	n := &Normalizer{cfg: cfg, exec: process.Local, log: logger.Get("audio")}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Enabled reports whether Prepare converts anything.
func (n *Normalizer) Enabled() bool { return n != nil && n.cfg.Normalize }

// Available reports whether the ffmpeg binary can be found.
func (n *Normalizer) Available() bool { return process.Available(n.cfg.Binary) }

// Prepare returns the artifact to transcribe. With normalization disabled
// it returns art unchanged. Otherwise it writes OutputName into ws, probes
// it, and removes art when the workspace owns it.
func (n *Normalizer) Prepare(ctx context.Context, art *acquire.Artifact, ws *workspace.Workspace) (*acquire.Artifact, error) {
	if !n.Enabled() {
		return art, nil
	}
	start := time.Now()
	out := ws.Path(OutputName)
	if err := ws.Track(out); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	res, err := n.exec.Run(runCtx, process.Command{
		Binary: n.cfg.Binary,
		Args: []string{
			"-hide_banner",
			"-nostdin",
			"-y",
			"-i", art.Path,
			"-vn",
			"-ac", strconv.Itoa(n.cfg.Channels),
			"-ar", strconv.Itoa(n.cfg.SampleRate),
			"-c:a", "pcm_s16le",
			out,
		},
	})
	if err != nil {
		_ = ws.Remove(out)
		return nil, n.classify(ctx, res, err)
	}

	info, err := Probe(out)
	if err != nil {
		_ = ws.Remove(out)
		return nil, err
	}

	if art.Owned {
		if err := ws.Remove(art.Path); err != nil {
			n.log.Warn("cleanup warning: could not remove acquired file", logger.MergeWithError(logger.Fields(
				logger.FieldPath, art.Path,
			), err))
		}
	}

	st, _ := os.Stat(out)
	var size int64
	if st != nil {
		size = st.Size()
	}
	n.log.WithContext(ctx).Debug("normalized audio", logger.Fields(
		logger.FieldPath, out,
		logger.FieldDuration, time.Since(start).Milliseconds(),
		"audio_seconds", info.Duration.Seconds(),
	))
	return &acquire.Artifact{
		Path:       out,
		Provenance: art.Provenance,
		Owned:      true,
		Size:       size,
	}, nil
}

func (n *Normalizer) classify(ctx context.Context, res *process.Result, err error) error {
	switch {
	case ctx.Err() != nil:
		return errors.Canceled("audio normalization").WithCause(err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.TranscriptionFailed("audio normalization timed out", err)
	case stderrors.Is(err, process.ErrBinaryNotFound):
		return errors.TranscriptionFailed("ffmpeg is not installed", err)
	}
	n.log.WithContext(ctx).Warn("ffmpeg failed", logger.Fields(
		"stderr", res.StderrTail(3),
		logger.FieldError, err.Error(),
	))
	return errors.TranscriptionFailed("unsupported or corrupt audio", err)
}
