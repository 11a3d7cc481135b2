package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/charlesng35/tooltable/internal/auditctx"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"

	requestIDKey  = "request_id"
	maxRequestIDs = 64
)

// RequestID assigns every request an id, honouring a well-formed inbound
// header, and stores the request origin on the request context for the change log.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > maxRequestIDs {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		ctx := auditctx.WithOrigin(c.Request.Context(), auditctx.Origin{
			RequestID: id,
			ClientIP:  c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Source:    "api",
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequestIDFrom returns the id assigned by RequestID, or "" when absent.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
