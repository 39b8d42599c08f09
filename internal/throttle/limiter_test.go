package throttle

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func newTestLimiter(t *testing.T, rps float64, burst int) (*Limiter, *time.Time) {
	t.Helper()
	l, err := NewLimiter(rps, burst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestNewLimiter_Invalid(t *testing.T) {
	for _, tt := range []struct {
		rps   float64
		burst int
	}{{0, 1}, {-1, 1}, {1, 0}} {
		if _, err := NewLimiter(tt.rps, tt.burst); err != ErrInvalidLimit {
			t.Errorf("rps=%v burst=%d: expected ErrInvalidLimit, got %v", tt.rps, tt.burst, err)
		}
	}
}

func TestAllow_BurstThenReject(t *testing.T) {
	l, _ := newTestLimiter(t, 1, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("request beyond burst should be rejected")
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, 1, 1)

	if !l.Allow("10.0.0.1") {
		t.Fatal("first request should be allowed")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("a different client should have its own bucket")
	}
}

func TestAllow_Refills(t *testing.T) {
	l, now := newTestLimiter(t, 1, 1)

	l.Allow("10.0.0.1")
	if l.Allow("10.0.0.1") {
		t.Fatal("bucket should be empty")
	}
	*now = now.Add(time.Second)
	if !l.Allow("10.0.0.1") {
		t.Error("bucket should refill after one second")
	}
}

func TestAllow_EvictsIdleClients(t *testing.T) {
	l, now := newTestLimiter(t, 1, 1)
	l.IdleTTL = time.Minute

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	if l.Len() != 2 {
		t.Fatalf("expected 2 tracked clients, got %d", l.Len())
	}

	*now = now.Add(2 * time.Minute)
	l.Allow("10.0.0.3")
	if l.Len() != 1 {
		t.Errorf("idle clients should be evicted, %d remain", l.Len())
	}
}

func TestMiddleware_Returns429(t *testing.T) {
	l, _ := newTestLimiter(t, 1, 1)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil)
	req.RemoteAddr = "192.0.2.1:5555"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error body, got content type %q", ct)
	}
}

func TestClientKey_StripsPort(t *testing.T) {
	l, _ := newTestLimiter(t, 1, 1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	if got := l.clientKey(req); got != "192.0.2.1" {
		t.Errorf("expected 192.0.2.1, got %s", got)
	}

	req.RemoteAddr = "192.0.2.9"
	if got := l.clientKey(req); got != "192.0.2.9" {
		t.Errorf("expected bare address passthrough, got %s", got)
	}
}

func TestMiddleware_IgnoresForwardedHeadersByDefault(t *testing.T) {
	l, _ := newTestLimiter(t, 1, 1)
	r := chi.NewRouter()
	r.Use(l.Middleware)
	r.Get("/api/v1/profiles", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	allowed := 0
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.101.%d", i))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			allowed++
		}
	}

	if allowed != 1 {
		t.Errorf("expected 1 allowed request from one peer, got %d", allowed)
	}
	if l.Len() != 1 {
		t.Errorf("expected 1 tracked key, got %d", l.Len())
	}
}

func TestClientKey_TrustedProxyHeaders(t *testing.T) {
	l, _ := newTestLimiter(t, 1, 1)
	l.TrustProxyHeaders = true

	tests := []struct {
		name      string
		realIP    string
		forwarded string
		want      string
	}{
		{"real ip wins", "198.51.100.4", "198.51.100.9", "198.51.100.4"},
		{"first forwarded entry", "", "198.51.100.9, 10.0.0.2", "198.51.100.9"},
		{"garbage falls back to peer", "", "not-an-ip", "203.0.113.7"},
		{"no headers", "", "", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.7:40000"
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := l.clientKey(req); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
