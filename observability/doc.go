// Package observability wires OpenTelemetry tracing and metrics.
//
//	shutdown, err := observability.Init(ctx, cfg, "mediascribe", version.Version, "production")
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanJob)
//	defer span.End()
//
//	metrics := observability.NewDefaultMetrics()
//	metrics.JobFinished(ctx, "completed", "", time.Since(start))
package observability
