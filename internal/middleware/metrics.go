package middleware

import (
	"strconv"
	"time"

	"maaztelecom/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Prometheus records request counts and latency per route template.
func Prometheus(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		duration := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "undefined"
		}

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
	}
}
