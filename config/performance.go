package config

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

const slowRequestThreshold = 200 * time.Millisecond

func PerformanceLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", latency,
			"ip", c.ClientIP(),
		}

		if latency > slowRequestThreshold {
			slog.Warn("slow request", attrs...)
			return
		}
		slog.Info("request", attrs...)
	}
}
