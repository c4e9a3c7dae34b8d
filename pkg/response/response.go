package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type APIResponse[T any] struct {
	Status    int         `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      T           `json:"data,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	Error     interface{} `json:"error,omitempty"`
}

// ErrorBody is the "error" member of failed responses. Code is the short
// machine-readable code clients switch on.
type ErrorBody struct {
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func build[T any](ctx *gin.Context, status int, success bool, message string, data T, meta, err interface{}) APIResponse[T] {
	return APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   success,
		Message:   message,
		Data:      data,
		Meta:      meta,
		Error:     err,
	}
}

// Success writes a successful envelope. status 0 means 200.
func Success[T any](ctx *gin.Context, status int, data T, message string, meta interface{}) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, build(ctx, status, true, message, data, meta, nil))
}

// Error writes a failed envelope. status 0 means 400.
func Error(ctx *gin.Context, status int, message string, err interface{}) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	ctx.JSON(status, build[any](ctx, status, false, message, nil, nil, err))
}

// Abort is Error for middleware: it also stops the handler chain.
func Abort(ctx *gin.Context, status int, message string, err interface{}) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	ctx.AbortWithStatusJSON(status, build[any](ctx, status, false, message, nil, nil, err))
}
