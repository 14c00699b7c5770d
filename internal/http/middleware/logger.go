package middleware

import (
	"time"

	"tourbooking/internal/utils"

	"github.com/gin-gonic/gin"
)

// Logger writes one structured line per request including request_id.
func Logger(log utils.Logger) gin.HandlerFunc {
	if log == nil {
		log = utils.L()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		kv := []any{
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", float64(latency.Microseconds()) / 1000.0,
			"ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			log.Error("http request", kv...)
		case status >= 400:
			log.Warn("http request", kv...)
		default:
			log.Info("http request", kv...)
		}
	}
}
