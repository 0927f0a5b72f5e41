// Package resilience provides the fault-tolerance primitives used around
// acquisition adapters and transcription engines.
//
//   - Retry: re-runs an operation with exponential backoff while it fails transiently
//   - CircuitBreaker: fails fast once a backend keeps failing transiently
//   - Bulkhead: bounds concurrent jobs
//   - RateLimiter: paces calls to a provider family (token bucket, x/time/rate)
//
// Defaults classify errors with errors.IsTransient: a NOT_FOUND or
// UNSUPPORTED_CONTENT result is an answer, not a backend failure, so it is
// neither retried nor counted against a breaker.
package resilience
