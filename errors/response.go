package errors

import stderrors "errors"

// ErrorBody is the part of an AppError that leaves the process. API error
// responses and job failure events share it. Cause is never included.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the JSON envelope of a failed API call.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func (e *AppError) Body() *ErrorBody {
	b := ErrorBody{Code: e.Code, Message: e.Message, Retryable: e.Retryable, Details: e.Details}
	return &b
}

func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: *e.Body()}
}

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	return stderrors.AsType[*AppError](err)
}

func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}
