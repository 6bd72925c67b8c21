package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trainova/classtrack-api/internal/service"
)

// Metrics observes method, route, status and duration of every request.
// Requests that matched no route are labelled with the raw URL path.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		metricsSvc.ObserveHTTPRequest(c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}
