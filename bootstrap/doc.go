// Package bootstrap runs the lifecycle of a mediascribe process.
//
// An App owns the typed configuration, the global logger and a
// component.Registry. Run starts every component, runs the configure
// callbacks and hooks, prints a startup summary and blocks until SIGINT or
// SIGTERM. RunTask does the same around a finite task, which is how the
// CLI runs a single transcription.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(workspaces)
//	app.RegisterComponent(models)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return transcribe(ctx)
//	})
package bootstrap
