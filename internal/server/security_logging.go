package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/region23/bookingbot/internal/middleware"
	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/metrics"
)

// SecurityLogger логирует события безопасности
type SecurityLogger struct {
	logger *logger.Logger
}

// NewSecurityLogger создает новый логгер безопасности
func NewSecurityLogger(log *logger.Logger) *SecurityLogger {
	return &SecurityLogger{logger: log.WithFields(logger.String("component", "security"))}
}

// LogFailedAuth логирует неудачную попытку аутентификации
func (sl *SecurityLogger) LogFailedAuth(c *gin.Context, reason string) {
	metrics.RecordError("http", "auth_failed")
	sl.logger.Warn("Authentication failed",
		logger.String("reason", reason),
		logger.String("ip", middleware.RealIP(c.Request)),
		logger.String("user_agent", c.Request.UserAgent()),
		logger.String("path", c.Request.URL.Path),
		logger.String("method", c.Request.Method),
	)
}

// LogValidationError логирует ошибки разбора входящих данных
func (sl *SecurityLogger) LogValidationError(c *gin.Context, source string, err error) {
	metrics.RecordError("http", "validation")
	sl.logger.Warn("Validation error",
		logger.String("source", source),
		logger.String("ip", middleware.RealIP(c.Request)),
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)
}

// LogSystemEvent логирует события жизненного цикла сервера
func (sl *SecurityLogger) LogSystemEvent(event string, fields ...logger.Field) {
	fields = append(fields,
		logger.String("event", event),
		logger.Int64("timestamp", time.Now().UTC().Unix()),
	)
	sl.logger.Info("System event", fields...)
}
