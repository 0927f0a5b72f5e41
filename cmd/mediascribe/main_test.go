package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/mediascribe/config"
	apperrors "github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/source"
	"github.com/kbukum/mediascribe/transcription"
	"github.com/kbukum/mediascribe/transcription/whisper"
	"github.com/kbukum/mediascribe/transcription/whispercpp"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Name != "mediascribe" || cfg.Version == "" {
		t.Errorf("unexpected identity %q %q", cfg.Name, cfg.Version)
	}
	if cfg.Transcription.Backend != transcription.BackendWhisper || cfg.Audio.Normalize {
		t.Errorf("whisper backend should not normalize: %+v", cfg.Audio)
	}
	if !strings.HasPrefix(cfg.Direct.HTTP.UserAgent, "mediascribe/") {
		t.Errorf("expected versioned user agent, got %q", cfg.Direct.HTTP.UserAgent)
	}
	if cfg.Server.Jobs.MaxConcurrent != 2 {
		t.Errorf("expected 2 concurrent jobs, got %d", cfg.Server.Jobs.MaxConcurrent)
	}
}

func TestConfigWhisperCPPNormalizes(t *testing.T) {
	cfg := &Config{}
	cfg.Transcription.Backend = transcription.BackendWhisperCPP
	cfg.ApplyDefaults()
	if !cfg.Audio.Normalize {
		t.Error("whispercpp needs WAV input, normalization should be on")
	}
}

func TestConfigValidateNamesSection(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.Transcription.Preload = []string{"huge"}
	err := cfg.Validate()
	if err == nil || !strings.HasPrefix(err.Error(), "transcription:") {
		t.Errorf("expected transcription error, got %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := `
name: mediascribe
environment: production
transcription:
  backend: whispercpp
  preload: [tiny, small]
server:
  jobs:
    max_concurrent: 4
    max_wait: 5s
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg, config.WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.ApplyDefaults()
	if cfg.Environment != "production" || cfg.Transcription.Backend != transcription.BackendWhisperCPP {
		t.Errorf("unexpected config %+v", cfg.ServiceConfig)
	}
	if cfg.Server.Jobs.MaxConcurrent != 4 || cfg.Server.Jobs.MaxWait != 5*time.Second {
		t.Errorf("unexpected jobs config %+v", cfg.Server.Jobs)
	}
	sels, err := cfg.Transcription.PreloadSelectors()
	if err != nil || len(sels) != 2 || sels[1] != source.Small {
		t.Errorf("unexpected preload %v %v", sels, err)
	}
}

func TestNewLoader(t *testing.T) {
	tests := []struct {
		backend string
		check   func(transcription.Loader) bool
	}{
		{transcription.BackendWhisper, func(l transcription.Loader) bool { _, ok := l.(*whisper.Loader); return ok }},
		{transcription.BackendWhisperCPP, func(l transcription.Loader) bool { _, ok := l.(*whispercpp.Loader); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := &Config{}
			cfg.Transcription.Backend = tt.backend
			cfg.ApplyDefaults()
			l, err := newLoader(cfg)
			if err != nil {
				t.Fatalf("newLoader: %v", err)
			}
			if !tt.check(l) {
				t.Errorf("unexpected loader %T", l)
			}
		})
	}

	cfg := &Config{}
	cfg.Transcription.Backend = "vosk"
	if _, err := newLoader(cfg); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestBuildPipelineRunsLocalJob(t *testing.T) {
	logger.SetGlobalLogger(logger.Nop())
	cfg := &Config{}
	cfg.Workspace.Root = t.TempDir()
	cfg.ApplyDefaults()

	p, err := buildPipeline(cfg)
	if err != nil {
		t.Fatalf("buildPipeline: %v", err)
	}
	if len(p.adapters) != 3 {
		t.Errorf("expected 3 adapters, got %d", len(p.adapters))
	}

	out := p.orchestrator.RunJob(context.Background(), source.Request{Source: filepath.Join(cfg.Workspace.Root, "missing.mp3")}, nil)
	if out.Succeeded() || out.Err == nil || out.Err.Code != apperrors.ErrCodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT for a missing file, got %+v", out.Result())
	}
	if p.workspaces.Active() != 0 {
		t.Error("workspace should be released")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("plain"), 1},
		{apperrors.InvalidInput("source", "empty"), 2},
		{apperrors.Unsupported("playlist"), 3},
		{fmt.Errorf("wrapped: %w", apperrors.Canceled("job")), 130},
		{apperrors.AcquisitionFailed("all 2 acquisition strategies failed", nil), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)
	p.Report(0.25, "acquiring (youtube)")
	p.Report(0.5, "acquiring (youtube)")
	p.Report(0.9, "loading model")
	p.Done()
	p.Done()

	out := buf.String()
	if strings.Count(out, "\n") != 2 {
		t.Errorf("expected one line per stage, got %q", out)
	}
	for _, want := range []string{"acquiring (youtube)", " 50%", "loading model", " 90%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestWriteTranscript(t *testing.T) {
	var stdout bytes.Buffer
	if err := writeTranscript(&stdout, "", "hello"); err != nil || stdout.String() != "hello\n" {
		t.Errorf("stdout: %q %v", stdout.String(), err)
	}

	path := filepath.Join(t.TempDir(), "out.txt")
	stdout.Reset()
	if err := writeTranscript(&stdout, path, "hello"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello\n" {
		t.Errorf("file: %q %v", data, err)
	}
	if stdout.Len() != 0 {
		t.Error("nothing should go to stdout with --output")
	}
}

func TestModelSelectors(t *testing.T) {
	sels, err := modelSelectors([]string{"Small", " tiny "}, transcription.Config{})
	if err != nil || len(sels) != 2 || sels[0] != source.Small || sels[1] != source.Tiny {
		t.Errorf("unexpected %v %v", sels, err)
	}
	if _, err := modelSelectors([]string{"huge"}, transcription.Config{}); err == nil {
		t.Error("unknown selector should fail")
	}
	sels, err = modelSelectors(nil, transcription.Config{Preload: []string{"medium"}})
	if err != nil || len(sels) != 1 || sels[0] != source.Medium {
		t.Errorf("expected configured preload, got %v %v", sels, err)
	}
}

func TestPrintModels(t *testing.T) {
	var buf bytes.Buffer
	printModels(&buf, "whisper", []transcription.Entry{{Selector: source.Small, Engine: "whisper"}})
	out := buf.String()
	for _, want := range []string{"backend: whisper", "small   loaded (whisper)", "base    - (default)", "large   -"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
