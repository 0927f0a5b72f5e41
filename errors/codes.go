package errors

import "net/http"

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Transient errors (retryable, the next strategy may succeed)
const (
	// ErrCodeTransient indicates a failure that may succeed on another attempt or strategy.
	ErrCodeTransient ErrorCode = "TRANSIENT"
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection to a service.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the client is rate limited.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Content errors
const (
	// ErrCodeNotFound indicates the requested media was not found, removed, or private.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUnsupportedContent indicates a property of the content that no strategy can
	// overcome: live streams, playlists, DRM, age restriction.
	ErrCodeUnsupportedContent ErrorCode = "UNSUPPORTED_CONTENT"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInvalidFormat indicates a field has an invalid format.
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
)

// Pipeline errors
const (
	// ErrCodeAcquisitionFailed indicates every acquisition strategy was exhausted.
	ErrCodeAcquisitionFailed ErrorCode = "ACQUISITION_FAILED"
	// ErrCodeTranscriptionFailed indicates model load or inference failed.
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	// ErrCodeCanceled indicates the caller canceled the operation.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

const statusClientClosed = 499

// codeInfo is the HTTP status and default retryability of each code.
var codeInfo = map[ErrorCode]struct {
	status    int
	retryable bool
}{
	ErrCodeTransient:           {http.StatusBadGateway, true},
	ErrCodeServiceUnavailable:  {http.StatusServiceUnavailable, true},
	ErrCodeConnectionFailed:    {http.StatusServiceUnavailable, true},
	ErrCodeTimeout:             {http.StatusGatewayTimeout, true},
	ErrCodeRateLimited:         {http.StatusTooManyRequests, true},
	ErrCodeExternalService:     {http.StatusBadGateway, true},
	ErrCodeNotFound:            {http.StatusNotFound, false},
	ErrCodeUnsupportedContent:  {http.StatusUnprocessableEntity, false},
	ErrCodeInvalidInput:        {http.StatusBadRequest, false},
	ErrCodeInvalidFormat:       {http.StatusBadRequest, false},
	ErrCodeAcquisitionFailed:   {http.StatusBadGateway, false},
	ErrCodeTranscriptionFailed: {http.StatusInternalServerError, false},
	ErrCodeCanceled:            {statusClientClosed, false},
	ErrCodeInternal:            {http.StatusInternalServerError, false},
}

// IsRetryableCode reports whether a failure with code may succeed when the
// same step is tried again. The acquisition chain moves on to the next
// adapter for every code except UNSUPPORTED_CONTENT and CANCELED, retryable
// or not.
func IsRetryableCode(code ErrorCode) bool {
	return codeInfo[code].retryable
}

// HTTPStatusOf maps code to a response status. Unknown codes are 500.
func HTTPStatusOf(code ErrorCode) int {
	if info, ok := codeInfo[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}
