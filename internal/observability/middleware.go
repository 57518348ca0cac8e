package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// GinMetrics records request count and latency per route pattern.
func GinMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ObserveHTTP(routeOf(c), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// GinLogger emits one structured line per request.
func GinLogger(l zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := l.Info()
		if c.Writer.Status() >= 500 {
			ev = l.Error()
		}
		ev.
			Str("route", routeOf(c)).
			Str("method", c.Request.Method).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("remote", c.ClientIP()).
			Str("ua", c.Request.UserAgent()).
			Msg("http_request")
	}
}

// unmatched paths are collapsed to keep metric cardinality bounded
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
