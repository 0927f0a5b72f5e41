// Package server is the HTTP surface of mediascribe: a Gin engine behind
// net/http middleware and an h2c handler, the job API, and the SSE stream
// of job events.
//
// # Routes
//
//   - POST /v1/jobs: run a job and return its outcome
//   - GET /v1/jobs/:id/events: stream a job's events
//   - GET /v1/models: list model selectors and which are loaded
//   - GET /health, GET /version
//
// # Middleware
//
// Applied in front of Gin (server/middleware): Recovery, RequestID, CORS,
// BodySizeLimit and RequestLogger.
package server
