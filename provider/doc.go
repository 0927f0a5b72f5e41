// Package provider implements a small generic provider framework: named
// backends behind a common RequestResponse[I, O] shape, a Registry for
// looking them up in a configured order, and middleware for cross-cutting
// concerns.
//
// Acquisition adapters and transcription backends are providers, so the
// same logging, metrics, tracing and resilience wrappers apply to both:
//
//	wrapped := provider.Chain(
//	    provider.WithTracing[In, Out]("acquire"),
//	    provider.WithLogging[In, Out](log),
//	    provider.WithMetrics[In, Out]("acquire", metrics),
//	    provider.WithResilienceMiddleware[In, Out](cfg),
//	)(adapter)
//
// Adapt bridges a backend with its own request/response types to a domain
// interface.
package provider
