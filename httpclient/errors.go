package httpclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kbukum/mediascribe/errors"
)

// StatusError carries the raw HTTP status of a failed response. It is the
// Cause of the AppError the client returns, so callers that need the status
// can still reach it with errors.As.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpclient: HTTP %d", e.StatusCode)
}

// ClassifyStatusCode converts an HTTP status code into the error taxonomy.
// Returns nil for 2xx and 3xx status codes.
//
// 401/403/404/410 mean the resource is private, restricted or gone and are
// NOT_FOUND. 429 is RATE_LIMITED. 5xx is SERVICE_UNAVAILABLE. Other 4xx codes
// are non-retryable external service errors.
func ClassifyStatusCode(service string, statusCode int, body []byte) *errors.AppError {
	if statusCode < 400 {
		return nil
	}
	cause := &StatusError{StatusCode: statusCode, Body: body}
	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden,
		statusCode == http.StatusNotFound, statusCode == http.StatusGone:
		return errors.NotFound("resource", service).
			WithCause(cause).
			WithDetail("status", statusCode)
	case statusCode == http.StatusTooManyRequests:
		return errors.RateLimited().WithCause(cause).WithDetail("service", service)
	case statusCode >= 500:
		return errors.ServiceUnavailable(service).
			WithCause(cause).
			WithDetail("status", statusCode)
	default:
		appErr := errors.ExternalServiceError(service, cause).WithDetail("status", statusCode)
		appErr.Retryable = false
		return appErr
	}
}

// classifyTransportError maps a failed round trip. Context errors keep their
// identity so cancellation is not mistaken for a network fault.
func classifyTransportError(service string, err error) error {
	switch {
	case stderrors.Is(err, context.Canceled):
		return errors.Canceled(service).WithCause(err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout(service).WithCause(err)
	}
	var netErr interface{ Timeout() bool }
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.Timeout(service).WithCause(err)
	}
	return errors.ConnectionFailed(service).WithCause(err)
}

// StatusCode extracts the HTTP status from an error returned by the client.
// Returns 0 for transport-level failures.
func StatusCode(err error) int {
	var se *StatusError
	if stderrors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// parseRetryAfter reads a Retry-After value in delay-seconds or HTTP-date
// form. Unparsable and past values are zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(at.Sub(now).Round(time.Second), 0)
	}
	return 0
}
