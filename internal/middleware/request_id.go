package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/welltrack/welltrack-api/pkg/response"
)

// RequestIDHeader is echoed on every response and accepted from trusted proxies.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestID assigns a correlation id to each request and exposes it under response.TraceIDKey.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(response.TraceIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
