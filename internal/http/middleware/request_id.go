package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"basegraph.app/sandbox/common/logger"
)

const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestID reuses a caller-supplied id when it looks sane and mints a
// UUID otherwise. The id is echoed back and attached to every log line of
// the request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}

		c.Header(RequestIDHeader, id)
		c.Set("request_id", id)
		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{RequestID: logger.Ptr(id)})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
