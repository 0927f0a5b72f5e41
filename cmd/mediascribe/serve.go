package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/mediascribe/component"
	"github.com/kbukum/mediascribe/job"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/server"
	"github.com/kbukum/mediascribe/sse"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the job pipeline over HTTP",
	Long: `Starts the HTTP server:

  POST /v1/jobs              run a job and return its outcome
  GET  /v1/jobs/:id/events   stream a job's events (SSE)
  GET  /v1/models            list models and which are loaded
  GET  /health, /version

Models listed under transcription.preload are loaded at startup.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	cfg := app.Cfg
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	hub := sse.NewComponent("/v1/jobs/:id/events")
	events := server.NewJobEvents(hub.Hub(), cfg.Server.Jobs.History)

	p, err := buildPipeline(cfg, job.WithListener(events.Publish))
	if err != nil {
		return err
	}
	preload, err := cfg.Transcription.PreloadSelectors()
	if err != nil {
		return err
	}
	if err := registerPipeline(app.Components.Register, p, preload...); err != nil {
		return err
	}

	api := server.NewAPI(cfg.Server.Jobs, p.orchestrator, p.cache, events)
	srv := server.New(cfg.Server, logger.Get("server"))
	srv.ApplyDefaults(cfg.Name, func(ctx context.Context) []component.Health {
		return append(app.Components.HealthAll(ctx), api.Health(ctx))
	})
	api.Register(srv.GinEngine())

	// The hub starts before the server and stops after it.
	if err := app.RegisterComponent(hub); err != nil {
		return err
	}
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}
	app.OnReady(func(context.Context) error {
		app.Logger.Info("Accepting jobs", logger.Fields(
			"addr", srv.Addr(),
			"backend", p.cache.Backend(),
			"max_concurrent", cfg.Server.Jobs.MaxConcurrent,
		))
		return nil
	})
	return app.Run(ctx)
}
