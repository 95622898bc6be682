package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs each request, tagging the authenticated caller when present.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		}
		if caller, ok := c.Get(CallerContextKey); ok {
			if name, ok := caller.(string); ok {
				attrs = append(attrs, slog.String("caller", name))
			}
		}
		logger.Info("http request", attrs...)
	}
}
