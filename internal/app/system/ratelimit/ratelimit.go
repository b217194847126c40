// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration // buckets unused this long are dropped
	now     func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// sweepAt is the bucket count that triggers dropping idle buckets.
const sweepAt = 1024

// New allows n events per period per key, with bursts up to n.
func New(n int, period time.Duration) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(n) / period.Seconds()),
		burst:   n,
		idle:    2 * period,
		now:     time.Now,
	}
}

// Allow reports whether an event for key may happen now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.buckets) >= sweepAt {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.idle {
				delete(l.buckets, k)
			}
		}
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// Reset forgets key's bucket.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// ClientIP extracts the client IP, preferring X-Forwarded-For and X-Real-IP
// for proxied requests.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
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

// LoginLimiter throttles login attempts per client IP and per email.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter allows perIPPerMinute attempts per IP per minute and
// 5 attempts per email per 5 minutes.
func NewLoginLimiter(perIPPerMinute int) *LoginLimiter {
	if perIPPerMinute <= 0 {
		perIPPerMinute = 10
	}
	return &LoginLimiter{
		ip:    New(perIPPerMinute, time.Minute),
		email: New(5, 5*time.Minute),
	}
}

// Check reports whether a login attempt may proceed and, if not, why.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, "Too many login attempts. Please wait a minute before trying again."
	}
	if email != "" {
		if !ll.email.Allow(strings.ToLower(strings.TrimSpace(email))) {
			return false, "Too many login attempts for this account. Please wait a few minutes."
		}
	}
	return true, ""
}

// ResetEmail clears the per-email budget after a successful login.
func (ll *LoginLimiter) ResetEmail(email string) {
	if email != "" {
		ll.email.Reset(strings.ToLower(strings.TrimSpace(email)))
	}
}
