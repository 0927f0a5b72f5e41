package provider

import "context"

// Closeable is implemented by providers holding a loaded model, a sidecar
// connection pool or similar.
type Closeable interface {
	Close(ctx context.Context) error
}

// CloseIfCloseable closes v if it can be closed and is a no-op otherwise.
func CloseIfCloseable(ctx context.Context, v any) error {
	c, ok := v.(Closeable)
	if !ok {
		return nil
	}
	return c.Close(ctx)
}
