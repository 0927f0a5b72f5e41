package acquire

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/observability"
	"github.com/kbukum/mediascribe/progress"
	"github.com/kbukum/mediascribe/provider"
	"github.com/kbukum/mediascribe/source"
	"github.com/kbukum/mediascribe/workspace"
)

// Chain runs adapters in plan order until one produces an artifact.
type Chain struct {
	registry *provider.Registry[Adapter]
	cfg      Config
	log      *logger.Logger
	metrics  *observability.Metrics
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithLogger sets the chain logger.
func WithLogger(l *logger.Logger) ChainOption {
	return func(c *Chain) { c.log = l }
}

// WithMetrics records one attempt metric per adapter tried.
func WithMetrics(m *observability.Metrics) ChainOption {
	return func(c *Chain) { c.metrics = m }
}

// NewChain creates a chain over the adapters in registry.
func NewChain(registry *provider.Registry[Adapter], cfg Config, opts ...ChainOption) *Chain {
	cfg.ApplyDefaults()
	c := &Chain{registry: registry, cfg: cfg, log: logger.Get("acquire")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Plan returns the registered adapter names tried for src, in order. The
// generic fallback is always last. Local files have an empty plan.
func (c *Chain) Plan(src source.Classified) []string {
	var key string
	switch src.Kind {
	case source.KindKnownProvider:
		key = string(src.Family)
	case source.KindGenericHTTP:
		key = GenericHTTPPlan
	default:
		return nil
	}

	names := append([]string{}, c.cfg.Plans[key]...)
	names = append(names, c.cfg.Generic)

	seen := make(map[string]bool, len(names))
	plan := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := c.registry.Get(name); !ok {
			c.log.Debug("adapter in plan is not registered", logger.Fields(logger.FieldAdapter, name, logger.FieldFamily, key))
			continue
		}
		plan = append(plan, name)
	}
	return plan
}

// Acquire produces an artifact for src inside ws. Progress reported through
// sink is non-decreasing across the whole run: attempt i of n owns the slice
// [i/n, (i+1)/n]. The returned attempts are in the order they were tried.
func (c *Chain) Acquire(ctx context.Context, src source.Classified, ws *workspace.Workspace, sink progress.Sink) (*Artifact, []Attempt, error) {
	if !src.IsRemote() {
		return nil, nil, errors.InvalidInput("source", "local files are not acquired")
	}
	if err := src.CheckAcquirable(); err != nil {
		return nil, nil, err
	}

	plan := c.Plan(src)
	if len(plan) == 0 {
		return nil, nil, errors.AcquisitionFailed("no acquisition strategy is available for "+src.Label(), []Attempt{})
	}

	sink = progress.Monotonic(sink)
	log := c.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldFamily, src.Label()))
	attempts := make([]Attempt, 0, len(plan))
	n := float64(len(plan))

	for i, name := range plan {
		if err := errors.Interrupted(ctx, "acquisition"); err != nil {
			return nil, attempts, err
		}

		adapter, _ := c.registry.Get(name)
		if !adapter.IsAvailable(ctx) {
			attempt := Attempt{Adapter: name, Code: errors.ErrCodeServiceUnavailable, Message: "adapter is unavailable"}
			attempts = append(attempts, attempt)
			c.record(ctx, attempt)
			log.Info("skipping unavailable adapter", logger.Fields(logger.FieldAdapter, name))
			continue
		}

		stage := "acquiring (" + name + ")"
		sub := progress.Range(sink, float64(i)/n, float64(i+1)/n)
		sub.Report(0, stage)

		art, attempt, err := c.try(ctx, adapter, src, ws, sub, stage)
		attempts = append(attempts, attempt)
		c.record(ctx, attempt)

		if art != nil {
			sub.Report(1, stage)
			log.Info("acquired audio", logger.Fields(
				logger.FieldAdapter, name,
				logger.FieldPath, art.Path,
				"bytes", art.Size,
				logger.FieldDuration, attempt.Duration.Milliseconds(),
			))
			return art, attempts, nil
		}

		switch {
		case attempt.Code == errors.ErrCodeUnsupportedContent:
			log.Info("content unsupported, aborting chain", logger.Fields(logger.FieldAdapter, name))
			return nil, attempts, err.WithDetail("adapter", name)
		case attempt.Code == errors.ErrCodeCanceled, ctx.Err() != nil:
			return nil, attempts, err
		}
		log.Info("adapter failed, falling through", logger.Fields(
			logger.FieldAdapter, name,
			"kind", string(attempt.Code),
			logger.FieldError, attempt.Message,
		))
	}

	return nil, attempts, errors.AcquisitionFailed(summarize(attempts), attempts)
}

// try runs one adapter under the attempt timeout and rolls back its partial
// files on failure.
func (c *Chain) try(ctx context.Context, adapter Adapter, src source.Classified, ws *workspace.Workspace, sub progress.Sink, stage string) (*Artifact, Attempt, *errors.AppError) {
	name := adapter.Name()
	attemptCtx := ctx
	if c.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()
	}

	cp := ws.Checkpoint()
	start := time.Now()
	art, err := adapter.Execute(attemptCtx, Request{
		Source:    src,
		Workspace: ws,
		Progress: progress.Func(func(f float64, _ string) {
			sub.Report(f, stage)
		}),
	})
	if err == nil {
		art, err = c.accept(art, name, ws)
	}
	attempt := Attempt{Adapter: name, Duration: time.Since(start)}
	if err == nil {
		attempt.Artifact = art
		return art, attempt, nil
	}

	ws.Rollback(cp)

	switch {
	case ctx.Err() != nil:
		err = errors.Interrupted(ctx, "acquisition")
	case stderrors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		err = errors.Timeout(name + " attempt").WithCause(err)
	}
	appErr := errors.From(err)
	attempt.Code = appErr.Code
	attempt.Message = appErr.Message
	return nil, attempt, appErr
}

// accept checks the artifact an adapter claims to have produced and takes
// ownership of it.
func (c *Chain) accept(art *Artifact, name string, ws *workspace.Workspace) (*Artifact, error) {
	if art == nil || art.Path == "" {
		return nil, errors.Transient(name, "adapter reported success without an artifact")
	}
	info, err := os.Stat(art.Path)
	if err != nil || info.IsDir() {
		return nil, errors.Transient(name, "artifact file is missing")
	}
	if info.Size() == 0 {
		return nil, errors.Transient(name, "artifact file is empty")
	}
	if err := ws.Track(art.Path); err != nil {
		return nil, err
	}
	return &Artifact{Path: art.Path, Provenance: name, Owned: true, Size: info.Size()}, nil
}

func (c *Chain) record(ctx context.Context, a Attempt) {
	outcome := "ok"
	if !a.Succeeded() {
		outcome = strings.ToLower(string(a.Code))
	}
	c.metrics.RecordAttempt(ctx, a.Adapter, outcome)
}

// summarize renders the attempts as one human-readable line.
func summarize(attempts []Attempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Adapter, a.Message))
	}
	return fmt.Sprintf("all %d acquisition strategies failed (%s)", len(attempts), strings.Join(parts, "; "))
}
