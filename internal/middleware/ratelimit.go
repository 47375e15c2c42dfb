package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/handler"
	"github.com/redis/go-redis/v9"
)

// Limiter counts attempts per key in a fixed window.
type Limiter interface {
	// Take records one attempt for key. When the attempt is over the limit it
	// returns false and how long until the window resets.
	Take(ctx context.Context, key string) (bool, time.Duration, error)
	// Reset clears the counter for key.
	Reset(ctx context.Context, key string) error
}

// =============================================================================
// In-memory Rate Limiter
// =============================================================================

// RateLimiter tracks request counts per key in process memory.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a new in-memory rate limiter.
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
		entries:     make(map[string]*rateLimitEntry),
	}

	go rl.cleanup()

	return rl
}

// Take implements Limiter.
func (rl *RateLimiter) Take(_ context.Context, key string) (bool, time.Duration, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.entries[key]
	if !exists || now.Sub(entry.windowStart) >= rl.window {
		rl.entries[key] = &rateLimitEntry{count: 1, windowStart: now}
		return true, 0, nil
	}

	entry.count++
	if entry.count <= rl.maxAttempts {
		return true, 0, nil
	}
	return false, rl.window - now.Sub(entry.windowStart), nil
}

// Reset implements Limiter.
func (rl *RateLimiter) Reset(_ context.Context, key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, key)
	return nil
}

// cleanup periodically removes expired entries.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := rl.now()
		for key, entry := range rl.entries {
			if now.Sub(entry.windowStart) >= rl.window {
				delete(rl.entries, key)
			}
		}
		rl.mu.Unlock()
	}
}

// =============================================================================
// Redis Rate Limiter
// =============================================================================

// RedisRateLimiter shares counters between API instances through Redis.
type RedisRateLimiter struct {
	client      redis.UniversalClient
	prefix      string
	maxAttempts int64
	window      time.Duration
}

// NewRedisRateLimiter creates a limiter storing counters under prefix.
func NewRedisRateLimiter(client redis.UniversalClient, prefix string, maxAttempts int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:      client,
		prefix:      prefix,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

func (rl *RedisRateLimiter) key(key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", rl.prefix, key)
}

// Take implements Limiter.
func (rl *RedisRateLimiter) Take(ctx context.Context, key string) (bool, time.Duration, error) {
	k := rl.key(key)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, rl.window)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("rate limit check failed: %w", err)
	}

	if incr.Val() <= rl.maxAttempts {
		return true, 0, nil
	}
	return false, ttl.Val(), nil
}

// Reset implements Limiter.
func (rl *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.client.Del(ctx, rl.key(key)).Err()
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// =============================================================================
// Rate Limit Middleware
// =============================================================================

// RateLimitMiddleware wraps a Limiter for use as HTTP middleware, keyed by
// client IP.
type RateLimitMiddleware struct {
	limiter Limiter
	logger  *slog.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware.
func NewRateLimitMiddleware(limiter Limiter, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Limit returns middleware that rate limits requests.
//
// A limiter backend failure lets the request through.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)

		allowed, wait, err := m.limiter.Take(r.Context(), clientIP)
		if err != nil {
			m.logger.Error("rate limiter unavailable", "error", err, "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			m.logger.Warn("rate limit exceeded",
				"ip", clientIP,
				"path", r.URL.Path,
				"method", r.Method,
			)

			retryAfter := int(wait.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			handler.ErrorResponse(w, r, m.logger, domain.RateLimit(""))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Auth Rate Limiter (combined limiter for auth endpoints)
// =============================================================================

// LimiterFactory builds a limiter for one auth action.
type LimiterFactory func(name string, maxAttempts int, window time.Duration) Limiter

// MemoryLimiters builds in-memory limiters.
func MemoryLimiters(_ string, maxAttempts int, window time.Duration) Limiter {
	return NewRateLimiter(maxAttempts, window)
}

// RedisLimiters builds limiters backed by client.
func RedisLimiters(client redis.UniversalClient) LimiterFactory {
	return func(name string, maxAttempts int, window time.Duration) Limiter {
		return NewRedisRateLimiter(client, name, maxAttempts, window)
	}
}

// AuthRateLimiter provides rate limiting for authentication endpoints
// with different limits for different actions.
type AuthRateLimiter struct {
	loginLimiter         Limiter
	signupLimiter        Limiter
	passwordResetLimiter Limiter
	logger               *slog.Logger
}

// NewAuthRateLimiter creates rate limiters for auth endpoints:
//   - Login: 5 attempts per 15 minutes
//   - Signup: 3 attempts per hour
//   - Password reset: 3 attempts per hour
func NewAuthRateLimiter(factory LimiterFactory, logger *slog.Logger) *AuthRateLimiter {
	return &AuthRateLimiter{
		loginLimiter:         factory("login", 5, 15*time.Minute),
		signupLimiter:        factory("signup", 3, time.Hour),
		passwordResetLimiter: factory("password_reset", 3, time.Hour),
		logger:               logger,
	}
}

// LimitLogin returns middleware for rate limiting login attempts.
func (a *AuthRateLimiter) LimitLogin(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.loginLimiter, a.logger).Limit(next)
}

// LimitSignup returns middleware for rate limiting signup and OTP requests.
func (a *AuthRateLimiter) LimitSignup(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.signupLimiter, a.logger).Limit(next)
}

// LimitPasswordReset returns middleware for rate limiting password reset requests.
func (a *AuthRateLimiter) LimitPasswordReset(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.passwordResetLimiter, a.logger).Limit(next)
}

// ResetLogin clears the login limit for the client after a successful login.
func (a *AuthRateLimiter) ResetLogin(r *http.Request) {
	if err := a.loginLimiter.Reset(r.Context(), getClientIP(r)); err != nil {
		a.logger.Warn("failed to reset login limit", "error", err)
	}
}

// =============================================================================
// Helpers
// =============================================================================

// getClientIP extracts the client IP from the request, considering proxy headers.
func getClientIP(r *http.Request) string {
	// X-Forwarded-For: client, proxy1, proxy2
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if clientIP := strings.TrimSpace(first); clientIP != "" {
			return clientIP
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
