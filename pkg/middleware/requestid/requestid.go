// Package requestid tags every request with a correlation id, propagated via
// the X-Request-ID header and the request context.
package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the correlation id on requests and responses.
const Header = "X-Request-ID"

const contextKey = "request_id"

// Middleware reuses an inbound X-Request-ID or mints a fresh uuid, stores it
// on the context and echoes it on the response.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := resolve(c)
		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)
		c.Next()
	}
}

// Value returns the request id stored on the context, empty when absent.
func Value(c *gin.Context) string {
	if v, ok := c.Get(contextKey); ok {
		if id, isString := v.(string); isString {
			return id
		}
	}
	return ""
}

func resolve(c *gin.Context) string {
	if id := c.GetHeader(Header); id != "" {
		return id
	}
	return uuid.NewString()
}
