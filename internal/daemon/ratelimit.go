package daemon

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// rateLimiter is a per-key token bucket
type rateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      int           // tokens per interval
	interval  time.Duration // refill interval
	burst     int           // bucket size
	idle      time.Duration // buckets unused this long are dropped
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	tokens    int
	lastCheck time.Time
}

func newRateLimiter(rate int, interval time.Duration, burst int) *rateLimiter {
	return &rateLimiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		interval: interval,
		burst:    max(burst, 1),
		idle:     5 * time.Minute,
		now:      time.Now,
	}
}

// Allow takes a token for key and reports whether one was available
func (rl *rateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &bucket{tokens: rl.burst - 1, lastCheck: now}
		return true
	}

	if add := int(now.Sub(b.lastCheck)/rl.interval) * rl.rate; add > 0 {
		b.tokens = min(b.tokens+add, rl.burst)
		b.lastCheck = now
	}
	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Remaining returns the tokens left for key
func (rl *rateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets[key]; ok {
		return b.tokens
	}
	return rl.burst
}

// sweep drops idle buckets at most once per idle period; mu must be held
func (rl *rateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idle {
		return
	}
	rl.lastSweep = now
	cutoff := now.Add(-rl.idle)
	for key, b := range rl.buckets {
		if b.lastCheck.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// rateLimitMiddleware rejects requests over the per-client limit with 429.
// Turns and session starts call the model, so only they are wrapped.
func rateLimitMiddleware(rl *rateLimiter, logger *slog.Logger, next http.HandlerFunc) http.HandlerFunc {
	if rl == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !rl.Allow(key) {
			logger.Warn("rate limit exceeded",
				"ip", key,
				"path", r.URL.Path,
				"correlation_id", GetCorrelationID(r.Context()),
			)
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.interval.Seconds())))
			w.Header().Set("X-RateLimit-Remaining", "0")
			writeError(w, http.StatusTooManyRequests, "too many requests, please slow down", nil)
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining(key)))
		next(w, r)
	}
}

// clientIP prefers proxy headers and falls back to the remote host
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
