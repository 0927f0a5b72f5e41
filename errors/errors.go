package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"time"
)

// DetailRetryAfter holds a time.Duration string after which another
// attempt may succeed, such as a host's Retry-After or an open circuit's
// next probe.
const DetailRetryAfter = "retry_after"

// AppError carries a taxonomy code through the pipeline. Acquisition
// adapters, transcription engines and the HTTP API all speak it.
type AppError struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	// HTTPStatus is what the API responds with.
	HTTPStatus int   `json:"-"`
	Cause      error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	maps.Copy(e.Details, details)
	return e
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	return e.WithDetails(map[string]any{key: value})
}

// RetryAfter parses the DetailRetryAfter hint. It is zero when absent.
func (e *AppError) RetryAfter() time.Duration {
	s, _ := e.Details[DetailRetryAfter].(string)
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// New builds an AppError whose retryability follows code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// build takes status and retryability from the code table. Details pairs
// with an empty string value are skipped.
func build(code ErrorCode, message string, kv ...string) *AppError {
	e := New(code, message, HTTPStatusOf(code))
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			e.WithDetail(kv[i], kv[i+1])
		}
	}
	return e
}

// Transient is a failure another attempt or another adapter may overcome.
func Transient(operation, reason string) *AppError {
	return build(ErrCodeTransient, fmt.Sprintf("%s failed: %s", operation, reason), "operation", operation)
}

func ServiceUnavailable(service string) *AppError {
	return build(ErrCodeServiceUnavailable,
		fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service), "service", service)
}

func ConnectionFailed(service string) *AppError {
	return build(ErrCodeConnectionFailed,
		fmt.Sprintf("Unable to connect to %s. Please verify the service is running.", service), "service", service)
}

func Timeout(operation string) *AppError {
	return build(ErrCodeTimeout, fmt.Sprintf("The %s took too long.", operation), "operation", operation)
}

func RateLimited() *AppError {
	return build(ErrCodeRateLimited, "Too many requests. Please wait a moment and try again.")
}

// NotFound is media that does not exist, was removed, or is private. id is
// omitted from the details when empty.
func NotFound(resource, id string) *AppError {
	return build(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource),
		"resource", resource, "id", id)
}

// Unsupported is content no acquisition adapter can handle: live streams,
// playlists, DRM.
func Unsupported(reason string) *AppError {
	return build(ErrCodeUnsupportedContent, "Unsupported content: "+reason, "reason", reason)
}

func InvalidInput(field, reason string) *AppError {
	e := build(ErrCodeInvalidInput, "Invalid input: "+reason, "field", field)
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	return e
}

// Validation wraps a joined list of field messages.
func Validation(message string) *AppError {
	return build(ErrCodeInvalidInput, message)
}

func InvalidFormat(field, expectedFormat string) *AppError {
	return build(ErrCodeInvalidFormat, fmt.Sprintf("Invalid format for %s. Expected: %s", field, expectedFormat),
		"field", field, "expected_format", expectedFormat)
}

// AcquisitionFailed reports an exhausted adapter chain. attempts is stored
// under "attempts" in the order the adapters ran.
func AcquisitionFailed(message string, attempts any) *AppError {
	return build(ErrCodeAcquisitionFailed, message).WithDetail("attempts", attempts)
}

// TranscriptionFailed covers model load and inference failures.
func TranscriptionFailed(reason string, cause error) *AppError {
	return build(ErrCodeTranscriptionFailed, "Transcription failed: "+reason).WithCause(cause)
}

func Canceled(operation string) *AppError {
	return build(ErrCodeCanceled, fmt.Sprintf("The %s was canceled.", operation), "operation", operation)
}

func Internal(cause error) *AppError {
	return build(ErrCodeInternal, "An unexpected error occurred. Please try again or contact support.").WithCause(cause)
}

// ExternalServiceError is an error answer from a sidecar such as the
// whisper HTTP server.
func ExternalServiceError(service string, cause error) *AppError {
	return build(ErrCodeExternalService,
		fmt.Sprintf("The %s service encountered an error. Please try again.", service), "service", service).WithCause(cause)
}

// Interrupted classifies a done context: TIMEOUT once its deadline passed,
// CANCELED otherwise. It is nil while ctx is live.
func Interrupted(ctx context.Context, operation string) *AppError {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return Timeout(operation).WithCause(err)
	}
	return Canceled(operation).WithCause(err)
}

// KindOf collapses err into a taxonomy code. Context cancellation is
// CANCELED, deadline expiry is TIMEOUT, and any other uncoded error is
// TRANSIENT.
func KindOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	switch {
	case stderrors.Is(err, context.Canceled):
		return ErrCodeCanceled
	case stderrors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	}
	return ErrCodeTransient
}

// IsTransient reports whether a later attempt may overcome err. An
// AppError's own Retryable flag wins over its code.
func IsTransient(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	return IsRetryableCode(KindOf(err))
}

// Is reports whether err carries code.
func Is(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// From returns err as an AppError, classifying it with KindOf when it is
// not one already.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	switch KindOf(err) {
	case ErrCodeCanceled:
		return Canceled("operation").WithCause(err)
	case ErrCodeTimeout:
		return Timeout("operation").WithCause(err)
	}
	return Transient("operation", "unexpected error").WithCause(err)
}
