// Package throttle implements per-client request rate limiting.
//
// Each client key (the socket peer IP, or the forwarded client IP when
// proxy headers are trusted) gets its own token bucket.
// Buckets idle for longer than IdleTTL are evicted lazily so the map does
// not grow without bound under a churn of clients.
package throttle

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sellerfin/offer-engine/internal/metrics"
)

// ErrInvalidLimit is returned when the limiter is configured with a
// non-positive rate or burst.
var ErrInvalidLimit = errors.New("throttle: rate and burst must be positive")

// DefaultIdleTTL is how long an unused client bucket is kept.
const DefaultIdleTTL = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out one token bucket per key.
type Limiter struct {
	// IdleTTL controls eviction of unused buckets.
	IdleTTL time.Duration

	// TrustProxyHeaders keys requests on X-Real-IP or X-Forwarded-For.
	// Enable it only behind a proxy that overwrites those headers; any
	// client can set them.
	TrustProxyHeaders bool

	rps   rate.Limit
	burst int

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
	now       func() time.Time
}

// NewLimiter creates a limiter allowing rps requests per second per key,
// with bursts of up to burst requests.
func NewLimiter(rps float64, burst int) (*Limiter, error) {
	if rps <= 0 || burst <= 0 {
		return nil, ErrInvalidLimit
	}
	return &Limiter{
		IdleTTL: DefaultIdleTTL,
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*client),
		now:     time.Now,
	}, nil
}

// Allow reports whether a request from key may proceed now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// sweep drops idle buckets at most once per IdleTTL. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.IdleTTL {
		return
	}
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) >= l.IdleTTL {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

// Middleware rejects requests over the per-client limit with 429.
// It keys on the socket peer unless TrustProxyHeaders is set. Do not mount
// chi's RealIP in front of it for untrusted traffic: RealIP rewrites
// RemoteAddr from client-supplied headers.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(1/float64(l.rps)) + 1)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(l.clientKey(r)) {
			metrics.ThrottledRequests.Inc()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) clientKey(r *http.Request) string {
	if l.TrustProxyHeaders {
		if ip := forwardedIP(r); ip != "" {
			return ip
		}
	}
	return peerIP(r)
}

func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// forwardedIP returns the client IP named by X-Real-IP, else the first
// X-Forwarded-For entry. Values that do not parse as IPs are ignored.
func forwardedIP(r *http.Request) string {
	candidate := r.Header.Get("X-Real-IP")
	if candidate == "" {
		first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		candidate = first
	}
	ip := net.ParseIP(strings.TrimSpace(candidate))
	if ip == nil {
		return ""
	}
	return ip.String()
}
