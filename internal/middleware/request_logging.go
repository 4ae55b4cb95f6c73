package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lgulliver/lodestone-backend/internal/metrics"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs and times every RPC call once it has been answered
func RequestLogger(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		elapsed := time.Since(start)
		metrics.RequestDuration.Observe(elapsed.Seconds(), c.FullPath(), strconv.Itoa(c.Writer.Status()))

		clientIP := c.GetHeader("X-Forwarded-For")
		if clientIP == "" {
			clientIP = c.ClientIP()
		}

		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		}

		event.
			Str("service", service).
			Str("method", c.FullPath()).
			Str("client_ip", clientIP).
			Str("user_agent", c.Request.UserAgent()).
			Int("status", c.Writer.Status()).
			Int("bytes", c.Writer.Size()).
			Dur("duration", elapsed).
			Msg("RPC call")
	}
}
