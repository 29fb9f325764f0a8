package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/region23/bookingbot/pkg/metrics"
)

// Prometheus добавляет метрики HTTP запросов
func Prometheus() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Шаблон маршрута, чтобы не плодить метки на каждый путь
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.RecordHTTPRequest(c.Request.Method, endpoint, status, time.Since(start))
	}
}
