package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/DukeRupert/nexleads/internal/domain"
)

// newClockedLimiter returns an in-memory limiter with a controllable clock.
func newClockedLimiter(max int, window time.Duration) (*RateLimiter, *time.Time) {
	rl := NewRateLimiter(max, window)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

// =============================================================================
// RateLimiter Tests
// =============================================================================

func TestRateLimiter_Take(t *testing.T) {
	ctx := context.Background()
	rl, _ := newClockedLimiter(2, time.Minute)

	for i := 0; i < 2; i++ {
		if ok, _, _ := rl.Take(ctx, "192.168.1.1"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	ok, wait, err := rl.Take(ctx, "192.168.1.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("third attempt should be limited")
	}
	if wait != time.Minute {
		t.Errorf("expected wait of 1m, got %v", wait)
	}

	// Other keys are independent.
	if ok, _, _ := rl.Take(ctx, "192.168.1.2"); !ok {
		t.Error("different key should be allowed")
	}
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	ctx := context.Background()
	rl, now := newClockedLimiter(1, time.Minute)

	rl.Take(ctx, "ip")
	if ok, _, _ := rl.Take(ctx, "ip"); ok {
		t.Fatal("second attempt should be limited")
	}

	*now = now.Add(30 * time.Second)
	if _, wait, _ := rl.Take(ctx, "ip"); wait != 30*time.Second {
		t.Errorf("expected wait of 30s, got %v", wait)
	}

	*now = now.Add(30 * time.Second)
	if ok, _, _ := rl.Take(ctx, "ip"); !ok {
		t.Error("attempt after the window should be allowed")
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	rl, _ := newClockedLimiter(1, time.Minute)

	rl.Take(ctx, "ip")
	if err := rl.Reset(ctx, "ip"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _, _ := rl.Take(ctx, "ip"); !ok {
		t.Error("attempt after reset should be allowed")
	}
}

// =============================================================================
// RateLimitMiddleware Tests
// =============================================================================

type failingLimiter struct{}

func (failingLimiter) Take(context.Context, string) (bool, time.Duration, error) {
	return false, 0, errors.New("connection refused")
}

func (failingLimiter) Reset(context.Context, string) error { return nil }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware_BlocksAfterLimit(t *testing.T) {
	rl, _ := newClockedLimiter(2, time.Minute)
	wrapped := NewRateLimitMiddleware(rl, newTestLogger()).Limit(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)

		if i < 2 && rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if i == 2 {
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("request %d: expected 429, got %d", i+1, rec.Code)
			}
			if got := rec.Header().Get("Retry-After"); got != "60" {
				t.Errorf("expected Retry-After 60, got %q", got)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got %q", ct)
			}
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Error.Code != domain.ERATELIMIT {
				t.Errorf("expected code %q, got %q", domain.ERATELIMIT, body.Error.Code)
			}
		}
	}
}

func TestRateLimitMiddleware_LimiterFailureAllows(t *testing.T) {
	wrapped := NewRateLimitMiddleware(failingLimiter{}, newTestLogger()).Limit(okHandler())

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/user/login", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.0.0.1:5555", "10.0.0.1"},
		{"remote addr without port", nil, "10.0.0.1", "10.0.0.1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.2"}, "10.0.0.1:1", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.7 "}, "10.0.0.1:1", "198.51.100.7"},
		{"forwarded wins", map[string]string{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "198.51.100.7"}, "10.0.0.1:1", "203.0.113.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

// =============================================================================
// AuthRateLimiter Tests
// =============================================================================

func TestAuthRateLimiter_Limits(t *testing.T) {
	arl := NewAuthRateLimiter(MemoryLimiters, newTestLogger())

	tests := []struct {
		name  string
		limit func(http.Handler) http.Handler
		max   int
	}{
		{"login", arl.LimitLogin, 5},
		{"signup", arl.LimitSignup, 3},
		{"password reset", arl.LimitPasswordReset, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := tt.limit(okHandler())
			for i := 1; i <= tt.max+1; i++ {
				req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
				req.RemoteAddr = "172.16.0." + strconv.Itoa(len(tt.name)) + ":1"
				rec := httptest.NewRecorder()
				wrapped.ServeHTTP(rec, req)

				want := http.StatusOK
				if i > tt.max {
					want = http.StatusTooManyRequests
				}
				if rec.Code != want {
					t.Errorf("attempt %d: expected %d, got %d", i, want, rec.Code)
				}
			}
		})
	}
}

func TestAuthRateLimiter_ResetLogin(t *testing.T) {
	arl := NewAuthRateLimiter(MemoryLimiters, newTestLogger())
	wrapped := arl.LimitLogin(okHandler())

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
		req.RemoteAddr = "192.168.9.9:1"
		return req
	}

	for i := 0; i < 5; i++ {
		wrapped.ServeHTTP(httptest.NewRecorder(), newReq())
	}
	arl.ResetLogin(newReq())

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, newReq())
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 after reset, got %d", rec.Code)
	}
}

// =============================================================================
// RedisRateLimiter Tests (requires REDIS_URL)
// =============================================================================

func TestRedisRateLimiter(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	rl := NewRedisRateLimiter(client, "test_"+strconv.FormatInt(time.Now().UnixNano(), 36), 2, time.Minute)
	key := "10.1.1.1"
	t.Cleanup(func() { _ = rl.Reset(context.Background(), key) })

	for i := 0; i < 2; i++ {
		ok, _, err := rl.Take(ctx, key)
		if err != nil || !ok {
			t.Fatalf("attempt %d: ok=%v err=%v", i+1, ok, err)
		}
	}

	ok, wait, err := rl.Take(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("third attempt should be limited")
	}
	if wait <= 0 || wait > time.Minute {
		t.Errorf("unexpected wait %v", wait)
	}

	if err := rl.Reset(ctx, key); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if ok, _, _ := rl.Take(ctx, key); !ok {
		t.Error("attempt after reset should be allowed")
	}
}

func TestNewRedisClient_BadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "not-a-url"); err == nil {
		t.Error("expected error for invalid url")
	}
}
