package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/thinkinginmath/scimigo-co/internal/api/middleware"
)

func TestRateLimiter_Allow(t *testing.T) {
	// Create a limiter: 5 requests per second, burst of 5
	rl := middleware.NewRateLimiter(5, time.Second, 5)

	key := "test-client"

	// Should allow first 5 requests (burst)
	for i := 0; i < 5; i++ {
		if !rl.Allow(key) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 6th request should be denied
	if rl.Allow(key) {
		t.Error("6th request should be denied")
	}
}

func TestRateLimiter_TokenRefill(t *testing.T) {
	// Create a limiter: 10 requests per 100ms, burst of 2
	rl := middleware.NewRateLimiter(10, 100*time.Millisecond, 2)

	key := "test-client"

	// Use up the burst
	rl.Allow(key)
	rl.Allow(key)

	// Should be denied now
	if rl.Allow(key) {
		t.Error("Should be denied after burst exhausted")
	}

	// Wait for refill
	time.Sleep(110 * time.Millisecond)

	// Should be allowed again
	if !rl.Allow(key) {
		t.Error("Should be allowed after token refill")
	}
}

func TestRateLimiter_MultipleClients(t *testing.T) {
	rl := middleware.NewRateLimiter(2, time.Second, 2)

	client1 := "client-1"
	client2 := "client-2"

	// Each client has their own bucket
	rl.Allow(client1)
	rl.Allow(client1)

	// Client 1 should be denied
	if rl.Allow(client1) {
		t.Error("Client 1 should be denied")
	}

	// Client 2 should still be allowed
	if !rl.Allow(client2) {
		t.Error("Client 2 should be allowed")
	}
}

func TestRateLimiter_Remaining(t *testing.T) {
	rl := middleware.NewRateLimiter(5, time.Second, 5)
	key := "test-client"

	// Initially should have full burst
	if remaining := rl.Remaining(key); remaining != 5 {
		t.Errorf("Remaining = %d; want 5", remaining)
	}

	// After one request
	rl.Allow(key)
	if remaining := rl.Remaining(key); remaining != 4 {
		t.Errorf("Remaining = %d; want 4", remaining)
	}

	// After exhausting
	rl.Allow(key)
	rl.Allow(key)
	rl.Allow(key)
	rl.Allow(key)

	if remaining := rl.Remaining(key); remaining != 0 {
		t.Errorf("Remaining = %d; want 0", remaining)
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	config := middleware.DefaultRateLimitConfig()

	if config.Requests <= 0 {
		t.Error("Requests should be positive")
	}
	if config.Window <= 0 {
		t.Error("Window should be positive")
	}
	if config.BurstMultiplier <= 0 {
		t.Error("BurstMultiplier should be positive")
	}
}

func TestRateLimitMiddleware_DeniesAfterBurst(t *testing.T) {
	mw := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Requests:        1,
		Window:          time.Minute,
		BurstMultiplier: 1,
	})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/v1/tracks/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := do(); got != http.StatusOK {
		t.Fatalf("first request status = %d; want 200", got)
	}
	if got := do(); got != http.StatusTooManyRequests {
		t.Errorf("second request status = %d; want 429", got)
	}
}
