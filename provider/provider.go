package provider

import "context"

// Provider is a named backend: an acquisition adapter, a transcription
// model loader, or a sidecar call.
type Provider interface {
	Name() string
	// IsAvailable reports whether the backend can serve requests right now:
	// its binary is on PATH, its sidecar answers, its host is reachable.
	// It is a cheap probe and must not start real work.
	IsAvailable(ctx context.Context) bool
}
