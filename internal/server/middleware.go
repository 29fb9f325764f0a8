package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/region23/bookingbot/internal/middleware"
	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/metrics"
)

// loggingMiddleware логирует HTTP запросы
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status_code", c.Writer.Status()),
			logger.Int64("duration_ms", time.Since(start).Milliseconds()),
			logger.String("ip", middleware.RealIP(c.Request)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		// Проверки и метрики пишем только в debug
		switch c.FullPath() {
		case "/health", "/metrics":
			s.logger.Debug("HTTP request completed", fields...)
		default:
			s.logger.Info("HTTP request completed", fields...)
		}
	}
}

// securityHeadersMiddleware добавляет заголовки безопасности
func (s *Server) securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", "default-src 'none'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// recoveryMiddleware перехватывает панику обработчика
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		metrics.RecordError("http", "panic")
		s.logger.Error("Panic in HTTP handler",
			logger.String("path", c.Request.URL.Path),
			logger.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}

// bodyLimitMiddleware ограничивает размер тела запроса
func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
