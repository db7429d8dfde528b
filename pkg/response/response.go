package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/welltrack/welltrack-api/pkg/errors"
)

// TraceIDKey is the gin context key holding the request correlation id.
const TraceIDKey = "traceID"

// Envelope wraps every JSON body returned by the API.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Meta    *Page      `json:"meta,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	TraceID string     `json:"trace_id,omitempty"`
}

// ErrorInfo holds error details to send to clients.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Page describes an offset window over a list.
type Page struct {
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// Success writes data with the given status.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Envelope{Success: true, Data: data})
}

// Paged writes one window of a list together with its offset and size.
func Paged[T any](c *gin.Context, items []T, offset int) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Meta:    &Page{Offset: max(0, offset), Count: len(items)},
	})
}

// Message writes a 200 carrying only a human readable confirmation.
func Message(c *gin.Context, text string) {
	Success(c, http.StatusOK, gin.H{"message": text})
}

// Error writes a JSON error response derived from an AppError. Internal causes are never serialised.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = appErr.Kind.StatusCode()
	}

	c.JSON(status, Envelope{
		Success: false,
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
		TraceID: c.GetString(TraceIDKey),
	})
}
