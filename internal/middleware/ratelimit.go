package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rburns/chorepoint/internal/apperr"
)

// RealIP extracts the client address, preferring X-Forwarded-For when a
// proxy set it and falling back to RemoteAddr.
func RealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First address in the chain is the original client.
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter is an in-memory fixed-window limiter keyed by caller-chosen
// strings, typically client IPs.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: make(map[string]*window)}
}

// Allow reports whether the key is still under limit for the current window.
func (rl *RateLimiter) Allow(key string, limit int, span time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[key]
	if !ok || now.After(w.resetAt) {
		rl.windows[key] = &window{count: 1, resetAt: now.Add(span)}
		return true
	}
	w.count++
	return w.count <= limit
}

// Cleanup drops expired windows. Call periodically; the map otherwise grows
// with every distinct key ever seen.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, w := range rl.windows {
		if now.After(w.resetAt) {
			delete(rl.windows, key)
		}
	}
}

// RateLimit limits requests by a key function, rejecting the excess with the
// limit_reached error shape.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, span time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(keyFunc(r), limit, span) {
				writeError(w, apperr.New(apperr.KindLimitReached, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
