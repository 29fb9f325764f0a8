package server

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger проверяет доступность зависимости
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
	Flows     int               `json:"flows_in_flight"`
	Runtime   map[string]any    `json:"runtime"`
}

// HealthChecker проверяет состояние системы
type HealthChecker struct {
	deps      map[string]Pinger
	flows     func() int
	startTime time.Time
	version   string
}

// NewHealthChecker создает новый health checker
func NewHealthChecker(deps map[string]Pinger, flows func() int, version string) *HealthChecker {
	if flows == nil {
		flows = func() int { return 0 }
	}
	return &HealthChecker{
		deps:      deps,
		flows:     flows,
		startTime: time.Now(),
		version:   version,
	}
}

// Check опрашивает зависимости
func (h *HealthChecker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]string, len(h.deps))
	status := "healthy"

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.deps[name].Ping(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			status = "unhealthy"
			continue
		}
		checks[name] = "healthy"
	}

	return HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
		Flows:     h.flows(),
		Runtime: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"version":    runtime.Version(),
		},
	}
}

// Handler обрабатывает запросы health check
func (h *HealthChecker) Handler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := h.Check(ctx)
	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}
