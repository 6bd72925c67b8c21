package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// responseMeta accumulates envelope metadata while a request is handled.
type responseMeta struct {
	started time.Time
	fields  map[string]interface{}
}

// WithResponseMeta seeds the metadata container and, once the handler chain
// has finished, backfills processing_time_ms for handlers that did not time
// themselves.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		m := &responseMeta{started: time.Now(), fields: map[string]interface{}{}}
		c.Set(responseMetaKey, m)
		c.Next()
		if _, ok := m.fields["processing_time_ms"]; !ok {
			m.fields["processing_time_ms"] = time.Since(m.started).Milliseconds()
		}
	}
}

// SetCacheHit flags whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaFields(c, true)["cache_hit"] = hit
}

// ExtractMeta hands back the metadata collected so far, nil when none exists.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	return metaFields(c, false)
}

func metaFields(c *gin.Context, create bool) map[string]interface{} {
	if c == nil {
		if create {
			return map[string]interface{}{}
		}
		return nil
	}
	if v, ok := c.Get(responseMetaKey); ok {
		if m, ok := v.(*responseMeta); ok {
			return m.fields
		}
	}
	if !create {
		return nil
	}
	m := &responseMeta{started: time.Now(), fields: map[string]interface{}{}}
	c.Set(responseMetaKey, m)
	return m.fields
}
