package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/mediascribe/errors"
)

// DataResponse is the standard success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// FailureResponse carries an error body next to partial data, such as the
// event history of a failed job.
type FailureResponse struct {
	Error apperrors.ErrorBody `json:"error"`
	Data  any                 `json:"data,omitempty"`
}

// RespondWithError inspects err: if it is an *apperrors.AppError the status and
// structured body are derived automatically; otherwise a generic 500 is sent.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	setRetryAfter(c, appErr)
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondFailure sends appErr's status with both the error body and data.
func RespondFailure(c *gin.Context, appErr *apperrors.AppError, data any) {
	setRetryAfter(c, appErr)
	c.JSON(appErr.HTTPStatus, FailureResponse{Error: *appErr.Body(), Data: data})
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// setRetryAfter turns the error's retry hint into whole seconds.
func setRetryAfter(c *gin.Context, appErr *apperrors.AppError) {
	if wait := appErr.RetryAfter(); wait > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	}
}
