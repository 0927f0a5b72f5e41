// Package component defines lifecycle-managed pieces of a mediascribe
// process: the HTTP server, the SSE hub, the model cache and the workspace
// root. A Registry starts them in registration order and stops them in
// reverse.
package component
