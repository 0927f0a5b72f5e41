// Package errors provides the structured error type shared by every mediascribe package.
// Error codes map the pipeline taxonomy (invalid input, unsupported content, not found,
// transient, acquisition and transcription failures) onto HTTP statuses and retryability.
package errors
