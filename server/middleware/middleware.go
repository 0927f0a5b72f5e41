package middleware

import (
	"net/http"
	"slices"
)

// Middleware wraps the whole handler in front of the gin engine, so it sees
// event streams as well as JSON requests.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one listed sees a request
// first.
func Chain(middlewares ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for _, m := range slices.Backward(middlewares) {
			h = m(h)
		}
		return h
	}
}
