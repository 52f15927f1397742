package daemon

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(rate, burst int) (*rateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	rl := newRateLimiter(rate, time.Minute, burst)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(2, 3)

	for i := range 3 {
		if !rl.Allow("a") {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if rl.Allow("a") {
		t.Error("request past burst should be denied")
	}
	if !rl.Allow("b") {
		t.Error("keys have independent buckets")
	}

	clock.advance(59 * time.Second)
	if rl.Allow("a") {
		t.Error("no refill before a full interval")
	}

	clock.advance(time.Second)
	if !rl.Allow("a") || !rl.Allow("a") {
		t.Error("one interval refills rate tokens")
	}
	if rl.Allow("a") {
		t.Error("refill is capped at rate per interval")
	}
}

func TestRateLimiter_RefillCappedAtBurst(t *testing.T) {
	rl, clock := newTestLimiter(5, 2)
	rl.Allow("a")
	rl.Allow("a")

	clock.advance(10 * time.Minute)
	if got := rl.Remaining("a"); got != 0 {
		t.Errorf("Remaining before Allow = %d, want 0", got)
	}
	rl.Allow("a")
	if got := rl.Remaining("a"); got != 1 {
		t.Errorf("Remaining = %d, want burst-1", got)
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl, clock := newTestLimiter(1, 1)
	rl.Allow("stale")

	clock.advance(6 * time.Minute)
	rl.Allow("fresh")

	if _, ok := rl.buckets["stale"]; ok {
		t.Error("idle bucket should be dropped")
	}
	if rl.Remaining("unknown") != 1 {
		t.Error("unknown keys report a full bucket")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:5", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.2.3.4:5", "10.0.0.9"},
		{"remote host", nil, "192.168.1.7:4242", "192.168.1.7"},
		{"remote without port", nil, "pipe", "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := clientIP(r); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServer_RateLimitsSessionStarts(t *testing.T) {
	server, _ := setupTestServer(t)
	rl, _ := newTestLimiter(2, 2)
	server.limiter = rl
	server.router = http.NewServeMux()
	server.setupRoutes()

	for i := range 2 {
		if w := do(t, server, http.MethodPost, "/v1/sessions", nil); w.Code != http.StatusCreated {
			t.Fatalf("request %d status = %d", i+1, w.Code)
		}
	}

	w := do(t, server, http.MethodPost, "/v1/sessions", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}

	// reads are not limited
	if w := do(t, server, http.MethodGet, "/v1/sessions", nil); w.Code != http.StatusOK {
		t.Errorf("list status = %d", w.Code)
	}
}
