package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/mediascribe/component"
	"github.com/kbukum/mediascribe/logger"
)

// App owns the component registry and the start/stop sequence shared by the
// serve, transcribe and models commands. C is the command's config type.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	gracefulTimeout time.Duration
	summaryOut      io.Writer

	onReady []Hook
	onStop  []Hook
}

// NewApp applies defaults to cfg, validates it and initializes logging.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()
	set := resolveSettings(opts)

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Logger:          set.logger,
		gracefulTimeout: set.gracefulTimeout,
		summaryOut:      set.summaryOut,
	}
	if app.Logger == nil {
		logger.Init(base.Logging, base.Name)
		app.Logger = logger.GetGlobalLogger()
	}

	// After logger.Init so component loggers pick up per-component levels.
	app.Components = component.NewRegistry()
	if set.stopTimeout > 0 {
		app.Components.SetStopTimeout(set.stopTimeout)
	}
	app.Summary = NewSummary(base.Name, base.Version)
	return app, nil
}

func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck fails unless every component reports healthy. The error lists
// each component that is not, as name=status(message).
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	results := a.Components.HealthAll(ctx)
	if component.Overall(results) == component.StatusHealthy {
		return nil
	}
	var notReady []string
	for _, h := range results {
		if h.Status == component.StatusHealthy {
			continue
		}
		detail := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			detail += "(" + h.Message + ")"
		}
		notReady = append(notReady, detail)
	}
	return fmt.Errorf("components not ready: %s", strings.Join(notReady, ", "))
}

// Run starts everything, prints the summary and blocks until SIGINT,
// SIGTERM or ctx cancellation, then shuts down.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx, true); err != nil {
		return err
	}

	a.Logger.Info("Accepting jobs, waiting for shutdown signal")
	a.waitForSignal(ctx)

	return a.stop()
}

// RunTask starts everything, runs task once and shuts down. SIGINT and
// SIGTERM cancel the task's context. If both the task and shutdown fail,
// the task error is returned.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx, false); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if sig := a.waitForSignal(taskCtx); sig != nil {
			cancel()
		}
	}()

	start := time.Now()
	taskErr := task(taskCtx)
	fields := logger.Fields("took", time.Since(start).String())
	if taskErr != nil {
		a.Logger.Debug("Task failed", logger.MergeWithError(fields, taskErr))
	} else {
		a.Logger.Debug("Task finished", fields)
	}

	stopErr := a.stop()
	if taskErr != nil {
		return taskErr
	}
	return stopErr
}

func (a *App[C]) startup(ctx context.Context, summary bool) error {
	start := time.Now()
	a.Logger.Info("Starting", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	// A degraded backend is reported but does not block startup.
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	if summary {
		a.DisplaySummary()
	}
	return nil
}

func (a *App[C]) initialize(ctx context.Context) error {
	a.Logger.Debug("Starting components", logger.Fields("count", len(a.Components.All())))
	if err := a.Components.StartAll(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
		defer cancel()
		_ = a.Components.StopAll(stopCtx)
		return fmt.Errorf("failed to start components: %w", err)
	}
	return nil
}

// DisplaySummary prints components, routes and health from the registry.
func (a *App[C]) DisplaySummary() {
	a.Summary.Render(a.summaryOut, a.Components)
}

// waitForSignal blocks until SIGINT, SIGTERM or ctx is done. It returns the
// signal, or nil when ctx ended first.
func (a *App[C]) waitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received signal, shutting down", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		return nil
	}
}

// stop runs OnStop hooks, then stops components in reverse registration
// order, all within the graceful timeout.
func (a *App[C]) stop() error {
	a.Logger.Info("Shutting down", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var errs []error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", logger.Fields(logger.FieldError, err.Error()))
		errs = append(errs, err)
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		a.Logger.Info("Shutdown complete")
	}
	return errors.Join(errs...)
}
