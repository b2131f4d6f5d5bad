package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// Health returns a JSON health check response.
// Checks every dependency; never exposes credentials or internals.
func Health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		body := gin.H{}
		status := http.StatusOK
		for name, check := range checks {
			state := "connected"
			if check(ctx) != nil {
				state = "error"
				status = http.StatusServiceUnavailable
			}
			body[name] = state
		}
		body["ok"] = status == http.StatusOK
		c.JSON(status, body)
	}
}
