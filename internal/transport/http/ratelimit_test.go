package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterBudgetsArePerClient(t *testing.T) {
	limiter := newRateLimiter(1, 2)

	if !limiter.allow("10.0.0.1") || !limiter.allow("10.0.0.1") {
		t.Fatalf("first client must get its full burst")
	}
	if limiter.allow("10.0.0.1") {
		t.Fatalf("first client exceeded its burst and must be rejected")
	}

	// A different client is unaffected by the first one's exhaustion.
	if !limiter.allow("10.0.0.2") {
		t.Fatalf("second client must have an independent budget")
	}
}

func TestRateLimiterRefillsAtConfiguredRate(t *testing.T) {
	limiter := newRateLimiter(2, 2)

	clock := time.Now()
	limiter.now = func() time.Time { return clock }

	if !limiter.allow("10.0.0.1") || !limiter.allow("10.0.0.1") {
		t.Fatalf("burst not granted")
	}
	if limiter.allow("10.0.0.1") {
		t.Fatalf("expected empty bucket")
	}

	// Half a second at 2 tokens/s refills one token, and only one.
	clock = clock.Add(500 * time.Millisecond)
	if !limiter.allow("10.0.0.1") {
		t.Fatalf("expected one refilled token")
	}
	if limiter.allow("10.0.0.1") {
		t.Fatalf("refill exceeded the configured rate")
	}
}

func TestRateLimiterDisabledWhenUnconfigured(t *testing.T) {
	limiter := newRateLimiter(0, 0)

	for i := 0; i < 100; i++ {
		if !limiter.allow("10.0.0.1") {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
}

func TestRateLimitMiddlewareKeysByClientIP(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)

	limiter := newRateLimiter(1, 1)

	router := gin.New()
	router.Use(RateLimitMiddleware(limiter))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("first request rejected: %d", code)
	}
	if code := send("10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("exhausted client not rejected: %d", code)
	}
	if code := send("10.0.0.2:1234"); code != http.StatusOK {
		t.Fatalf("one noisy client starved another: %d", code)
	}
}
