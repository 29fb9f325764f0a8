package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/metrics"
)

// RateLimiter ограничивает частоту запросов по ключу (IP адресу)
type RateLimiter struct {
	limit rate.Limit
	burst int
	log   *logger.Logger

	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	lastAccess map[string]time.Time

	cleanupInterval time.Duration
	idleTTL         time.Duration
	done            chan struct{}
	closeOnce       sync.Once
}

// NewRateLimiter создает rate limiter: rps запросов в секунду с запасом burst
func NewRateLimiter(rps float64, burst int, log *logger.Logger) *RateLimiter {
	rl := &RateLimiter{
		limit:           rate.Limit(rps),
		burst:           burst,
		log:             log,
		limiters:        make(map[string]*rate.Limiter),
		lastAccess:      make(map[string]time.Time),
		cleanupInterval: 5 * time.Minute,
		idleTTL:         10 * time.Minute,
		done:            make(chan struct{}),
	}

	go rl.cleanupRoutine()

	return rl
}

// Allow проверяет, разрешен ли запрос для данного ключа
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = l
	}
	rl.lastAccess[key] = time.Now()
	rl.mu.Unlock()

	return l.Allow()
}

// cleanupRoutine периодически удаляет неиспользуемые limiters
func (rl *RateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-rl.idleTTL)
	cleaned := 0
	for key, last := range rl.lastAccess {
		if last.Before(cutoff) {
			delete(rl.limiters, key)
			delete(rl.lastAccess, key)
			cleaned++
		}
	}

	if cleaned > 0 {
		rl.log.Debug("Cleaned up rate limiters",
			logger.Int("cleaned_count", cleaned),
			logger.Int("remaining_count", len(rl.limiters)),
		)
	}
	return cleaned
}

// Close останавливает cleanup routine
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.done) })
}

// RateLimit gin middleware ограничения по IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := RealIP(c.Request)
		if !limiter.Allow(key) {
			limiter.log.Warn("Rate limit exceeded",
				logger.String("ip", key),
				logger.String("path", c.Request.URL.Path),
			)
			metrics.RecordRateLimitHit(c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// RealIP извлекает реальный IP адрес из запроса
func RealIP(r *http.Request) string {
	headers := []string{
		"CF-Connecting-IP", // Cloudflare
		"X-Forwarded-For",
		"X-Real-IP", // Nginx
	}

	for _, header := range headers {
		ip := r.Header.Get(header)
		if ip == "" {
			continue
		}
		// X-Forwarded-For может содержать несколько IP через запятую
		if first, _, found := strings.Cut(ip, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(ip)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
