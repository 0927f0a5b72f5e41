// Package whispercpp is a transcription backend that runs the whisper.cpp
// CLI on normalized 16 kHz WAV files. Loading a selector makes sure its ggml
// model is on disk, downloading it once when absent.
package whispercpp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/httpclient"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/process"
	"github.com/kbukum/mediascribe/source"
	"github.com/kbukum/mediascribe/transcription"
)

// ProviderName is the registered name for the whisper.cpp backend.
const ProviderName = "whispercpp"

// Loader implements transcription.Loader with local ggml models.
type Loader struct {
	cfg    Config
	exec   process.Executor
	client *httpclient.Client
	log    *logger.Logger
}

var _ transcription.Loader = (*Loader)(nil)

// Option configures a Loader.
type Option func(*Loader)

// WithExecutor replaces the subprocess executor.
func WithExecutor(e process.Executor) Option {
	return func(l *Loader) { l.exec = e }
}

// NewLoader creates a loader.
func NewLoader(cfg Config, opts ...Option) (*Loader, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{Name: "model-download"})
	if err != nil {
		return nil, fmt.Errorf("whispercpp: %w", err)
	}
	l := &Loader{cfg: cfg, exec: process.Local, client: client, log: logger.Get("transcription.whispercpp")}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Name returns the provider name.
func (l *Loader) Name() string { return ProviderName }

// IsAvailable reports whether the whisper.cpp binary can be found.
func (l *Loader) IsAvailable(context.Context) bool { return process.Available(l.cfg.Binary) }

// ModelPath returns where the model for sel is stored.
func (l *Loader) ModelPath(sel source.Selector) string { return l.cfg.modelPath(sel) }

// Load ensures the ggml model for sel exists and returns an engine for it.
func (l *Loader) Load(ctx context.Context, sel source.Selector) (transcription.Engine, error) {
	path := l.cfg.modelPath(sel)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return &Engine{loader: l, model: sel, modelPath: path}, nil
	}
	if l.cfg.DisableDownload {
		return nil, errors.TranscriptionFailed("model file "+path+" is missing", nil).WithDetail("model", string(sel))
	}
	if err := l.download(ctx, sel, path); err != nil {
		return nil, err
	}
	return &Engine{loader: l, model: sel, modelPath: path}, nil
}

// download fetches the model into a temp file and renames it into place,
// so a partial download never looks like a model.
func (l *Loader) download(ctx context.Context, sel source.Selector, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Internal(err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return errors.Internal(err)
	}
	tmpPath := tmp.Name()

	url := l.cfg.modelURL(sel)
	start := time.Now()
	l.log.Info("downloading model", logger.Fields(logger.FieldSelector, string(sel), "url", url, logger.FieldPath, dest))

	lastDecile := int64(-1)
	written, err := l.client.Download(ctx, httpclient.Request{Path: url}, tmp, func(n, total int64) {
		if total <= 0 {
			return
		}
		if d := n * 10 / total; d != lastDecile {
			lastDecile = d
			l.log.Debug("model download progress", logger.Fields(logger.FieldSelector, string(sel), "percent", d*10))
		}
	})
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = errors.Internal(closeErr)
	}
	if err == nil && written == 0 {
		err = errors.TranscriptionFailed("downloaded model is empty", nil)
	}
	if err == nil {
		err = os.Rename(tmpPath, dest)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	l.log.Info("model downloaded", logger.Fields(
		logger.FieldSelector, string(sel),
		"bytes", written,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return nil
}

// Engine runs whisper.cpp with one model.
type Engine struct {
	loader    *Loader
	model     source.Selector
	modelPath string
}

// Name returns the provider name.
func (e *Engine) Name() string { return ProviderName }

// Transcribe runs the CLI on audioPath. The JSON output goes to a private
// temporary directory, so nothing is written beside the input.
func (e *Engine) Transcribe(ctx context.Context, audioPath string) (*transcription.Transcript, error) {
	cfg := e.loader.cfg
	outDir, err := os.MkdirTemp("", "mediascribe-whispercpp-*")
	if err != nil {
		return nil, errors.TranscriptionFailed("cannot create output directory", err)
	}
	defer func() { _ = os.RemoveAll(outDir) }()
	outBase := filepath.Join(outDir, "transcript")
	args := []string{
		"-m", e.modelPath,
		"-f", audioPath,
		"-of", outBase,
		"-oj",
		"-np",
		"-l", cfg.Language,
	}
	if cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(cfg.Threads))
	}

	res, err := e.loader.exec.Run(ctx, process.Command{Binary: cfg.Binary, Args: args})
	if err != nil {
		e.loader.log.WithContext(ctx).Warn("whisper.cpp failed", logger.Fields(
			logger.FieldSelector, string(e.model),
			"stderr", res.StderrTail(3),
			logger.FieldError, err.Error(),
		))
		return nil, classifyRun(ctx, err)
	}

	data, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return nil, errors.TranscriptionFailed("whisper.cpp produced no output", err)
	}
	var out cliOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.TranscriptionFailed("unreadable whisper.cpp output", err)
	}
	return out.transcript(e.model), nil
}

func classifyRun(ctx context.Context, err error) error {
	switch {
	case ctx.Err() == context.Canceled:
		return errors.Canceled("whisper.cpp").WithCause(err)
	case stderrors.Is(err, process.ErrBinaryNotFound):
		return errors.ServiceUnavailable("whisper.cpp").WithCause(err)
	}
	return errors.TranscriptionFailed("whisper.cpp failed", err)
}

// cliOutput is the subset of the -oj document the engine reads.
type cliOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func (o *cliOutput) transcript(model source.Selector) *transcription.Transcript {
	t := &transcription.Transcript{Language: o.Result.Language, Model: model}
	parts := make([]string, 0, len(o.Transcription))
	for _, seg := range o.Transcription {
		text := strings.TrimSpace(seg.Text)
		t.Segments = append(t.Segments, transcription.Segment{
			Start: float64(seg.Offsets.From) / 1000,
			End:   float64(seg.Offsets.To) / 1000,
			Text:  text,
		})
		if text != "" {
			parts = append(parts, text)
		}
	}
	t.Text = strings.Join(parts, " ")
	if n := len(t.Segments); n > 0 {
		t.Duration = t.Segments[n-1].End
	}
	return t
}
