package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/region23/bookingbot/internal/testutils"
)

func TestRateLimiter_PerKey(t *testing.T) {
	rl := NewRateLimiter(1, 2, testutils.SetupTestLogger())
	defer rl.Close()

	testutils.AssertTrue(t, rl.Allow("a"), "first request")
	testutils.AssertTrue(t, rl.Allow("a"), "burst request")
	testutils.AssertFalse(t, rl.Allow("a"), "over burst")
	testutils.AssertTrue(t, rl.Allow("b"), "other key has own bucket")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, testutils.SetupTestLogger())
	defer rl.Close()

	rl.Allow("old")
	rl.Allow("fresh")
	rl.lastAccess["old"] = time.Now().Add(-time.Hour)

	testutils.AssertEqual(t, 1, rl.cleanup(time.Now()), "one limiter removed")
	_, ok := rl.limiters["fresh"]
	testutils.AssertTrue(t, ok, "fresh limiter kept")
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.001, 1, testutils.SetupTestLogger())
	defer rl.Close()

	r := gin.New()
	r.Use(RateLimit(rl))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	testutils.AssertEqual(t, http.StatusOK, do("1.1.1.1"), "first allowed")
	testutils.AssertEqual(t, http.StatusTooManyRequests, do("1.1.1.1"), "second limited")
	testutils.AssertEqual(t, http.StatusOK, do("2.2.2.2"), "other ip allowed")
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:4312"
	testutils.AssertEqual(t, "192.168.1.5", RealIP(req), "remote addr without port")

	req.Header.Set("X-Real-IP", "10.1.1.1")
	testutils.AssertEqual(t, "10.1.1.1", RealIP(req), "x-real-ip")

	req.Header.Set("CF-Connecting-IP", "8.8.8.8")
	testutils.AssertEqual(t, "8.8.8.8", RealIP(req), "cloudflare header wins")
}
