package main

import (
	"fmt"

	"github.com/kbukum/mediascribe/acquire"
	"github.com/kbukum/mediascribe/acquire/direct"
	"github.com/kbukum/mediascribe/acquire/youtube"
	"github.com/kbukum/mediascribe/acquire/ytdlp"
	"github.com/kbukum/mediascribe/audio"
	"github.com/kbukum/mediascribe/job"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/observability"
	"github.com/kbukum/mediascribe/transcription"
	"github.com/kbukum/mediascribe/transcription/whisper"
	"github.com/kbukum/mediascribe/transcription/whispercpp"
	"github.com/kbukum/mediascribe/workspace"
)

// pipeline is the wired job pipeline shared by every command.
type pipeline struct {
	orchestrator *job.Orchestrator
	cache        *transcription.Cache
	workspaces   *workspace.Manager
	adapters     []acquire.Adapter
	normalizer   *audio.Normalizer
}

// buildPipeline wires workspaces, adapters, the chain, the model cache and
// the orchestrator from cfg. opts are passed to the orchestrator.
func buildPipeline(cfg *Config, opts ...job.Option) (*pipeline, error) {
	metrics := observability.NewDefaultMetrics()

	wm, err := workspace.NewManager(cfg.Workspace, logger.Get("workspace"))
	if err != nil {
		return nil, fmt.Errorf("workspaces: %w", err)
	}

	directAdapter, err := direct.New(cfg.Direct)
	if err != nil {
		return nil, fmt.Errorf("direct adapter: %w", err)
	}
	adapters := []acquire.Adapter{
		youtube.New(cfg.YouTube),
		ytdlp.New(cfg.YTDLP),
		directAdapter,
	}
	reg, err := acquire.NewRegistry(cfg.Acquire, metrics, adapters...)
	if err != nil {
		return nil, fmt.Errorf("adapter registry: %w", err)
	}
	chain := acquire.NewChain(reg, cfg.Acquire, acquire.WithMetrics(metrics))

	loader, err := newLoader(cfg)
	if err != nil {
		return nil, err
	}
	cache := transcription.NewCache(loader,
		transcription.WithLoadTimeout(cfg.Transcription.LoadTimeout),
		transcription.WithCacheMetrics(metrics),
	)

	normalizer := audio.NewNormalizer(cfg.Audio)
	if normalizer.Enabled() && !normalizer.Available() {
		logger.Get("audio").Warn("ffmpeg not found, transcription will fail", logger.Fields("binary", cfg.Audio.Binary))
	}

	base := []job.Option{
		job.WithInvoker(transcription.NewInvoker(cfg.Transcription)),
		job.WithPreparer(normalizer),
		job.WithMetrics(metrics),
	}
	orch := job.New(cfg.Job, wm, chain, cache, append(base, opts...)...)

	return &pipeline{
		orchestrator: orch,
		cache:        cache,
		workspaces:   wm,
		adapters:     adapters,
		normalizer:   normalizer,
	}, nil
}

// newLoader returns the model loader of the configured backend.
func newLoader(cfg *Config) (transcription.Loader, error) {
	switch cfg.Transcription.Backend {
	case transcription.BackendWhisper:
		l, err := whisper.NewLoader(cfg.Whisper)
		if err != nil {
			return nil, fmt.Errorf("whisper backend: %w", err)
		}
		return l, nil
	case transcription.BackendWhisperCPP:
		l, err := whispercpp.NewLoader(cfg.WhisperCPP)
		if err != nil {
			return nil, fmt.Errorf("whispercpp backend: %w", err)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown transcription backend %q", cfg.Transcription.Backend)
	}
}
