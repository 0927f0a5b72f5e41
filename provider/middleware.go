package provider

// Middleware wraps a provider with a cross-cutting concern while keeping its
// name and availability.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain composes middlewares so the first is outermost:
// Chain(a, b, c)(p) == a(b(c(p))). Nil entries are skipped, which lets
// callers leave out optional layers inline.
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			if middlewares[i] != nil {
				inner = middlewares[i](inner)
			}
		}
		return inner
	}
}

// WithResilienceMiddleware is WithResilience in Middleware form.
func WithResilienceMiddleware[I, O any](cfg ResilienceConfig) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return WithResilience(inner, cfg)
	}
}
