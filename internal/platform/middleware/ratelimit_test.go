package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
)

func limitedHandler(cfg RateLimitConfig) echo.HandlerFunc {
	mw := RateLimit(cfg)
	return mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
}

func sendFrom(t *testing.T, e *echo.Echo, h echo.HandlerFunc, addr string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots", nil)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestRateLimitWithinBurst(t *testing.T) {
	e := echo.New()
	h := limitedHandler(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})

	for i := 0; i < 5; i++ {
		rec, err := sendFrom(t, e, h, "10.0.0.1:4000")
		if err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: X-RateLimit-Limit = %q, want 10", i+1, got)
		}
		want := strconv.Itoa(4 - i)
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != want {
			t.Errorf("request %d: X-RateLimit-Remaining = %q, want %s", i+1, got, want)
		}
	}
}

func TestRateLimitExhaustedBucketReturns429(t *testing.T) {
	e := echo.New()
	h := limitedHandler(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})

	for i := 0; i < 2; i++ {
		if _, err := sendFrom(t, e, h, "10.0.0.1:4000"); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	rec, err := sendFrom(t, e, h, "10.0.0.1:4000")
	if err == nil {
		t.Fatal("expected the third request to be throttled")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", httpErr.Code)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}
	retryAfter, parseErr := strconv.Atoi(rec.Header().Get("Retry-After"))
	if parseErr != nil {
		t.Fatalf("Retry-After is not an integer: %q", rec.Header().Get("Retry-After"))
	}
	if retryAfter < 1 {
		t.Errorf("Retry-After = %d, want >= 1", retryAfter)
	}
}

func TestRateLimitIsolatesClients(t *testing.T) {
	e := echo.New()
	h := limitedHandler(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})

	// Exhaust the front-desk workstation's bucket. The port differs per
	// connection but the bucket keys on the IP.
	if _, err := sendFrom(t, e, h, "10.0.0.1:4000"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := sendFrom(t, e, h, "10.0.0.1:4001"); err == nil {
		t.Fatal("second request from the same IP should be throttled")
	}

	// A different clinic workstation still gets through.
	if _, err := sendFrom(t, e, h, "10.0.0.2:4000"); err != nil {
		t.Fatalf("other client: %v", err)
	}
}

func TestBucketTakeReportsRetryAfter(t *testing.T) {
	b := newBucket(2, 1)
	if ok, _, _ := b.take(); !ok {
		t.Fatal("first take should succeed")
	}
	ok, remaining, retryAfter := b.take()
	if ok {
		t.Fatal("empty bucket should refuse")
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
	if retryAfter < 1 {
		t.Errorf("retryAfter = %d, want >= 1", retryAfter)
	}
}

func TestBucketZeroRateNeverRefills(t *testing.T) {
	b := newBucket(0, 1)
	b.take()
	if ok, _, retryAfter := b.take(); ok || retryAfter != 1 {
		t.Errorf("zero-rate bucket: ok=%v retryAfter=%d, want refused with retryAfter 1", ok, retryAfter)
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 100 || cfg.BurstSize != 200 {
		t.Errorf("got %+v, want 100 rps with burst 200", cfg)
	}
}
