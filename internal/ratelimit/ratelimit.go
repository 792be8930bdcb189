// Package ratelimit throttles requests per client IP with token buckets.
package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tau/gsync/internal/httputil"
	"github.com/tau/gsync/internal/metrics"
)

// Config holds rate limiting configuration.
type Config struct {
	RPS        float64  // sustained requests per second per IP; <= 0 disables limiting
	Burst      int      // bucket size
	TrustProxy bool     // honor X-Forwarded-For / X-Real-IP
	Paths      []string // path prefixes to limit; empty limits everything
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	r        rate.Limit
	b        int
	now      func() time.Time
}

// NewIPRateLimiter creates a limiter allowing r events per second with burst b per IP.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		r:        r,
		b:        b,
		now:      time.Now,
	}
}

// Limiter returns the bucket for ip, creating it on first use.
func (l *IPRateLimiter) Limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.r, l.b)}
		l.visitors[ip] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

// Allow reports whether a request from ip may proceed now.
func (l *IPRateLimiter) Allow(ip string) bool {
	return l.Limiter(ip).AllowN(l.now(), 1)
}

// Evict drops buckets idle for longer than idle and returns how many were removed.
func (l *IPRateLimiter) Evict(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	n := 0
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
			n++
		}
	}
	return n
}

// Len returns the number of tracked IPs.
func (l *IPRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (c Config) applies(path string) bool {
	if len(c.Paths) == 0 {
		return true
	}
	for _, p := range c.Paths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Middleware rejects requests over the per-IP budget with 429. The limiter
// is returned so the caller can run eviction alongside it.
func Middleware(cfg Config, logger *slog.Logger) (func(http.Handler) http.Handler, *IPRateLimiter) {
	limiter := NewIPRateLimiter(rate.Limit(cfg.RPS), cfg.Burst)

	retryAfter := "1"
	if cfg.RPS > 0 && cfg.RPS < 1 {
		retryAfter = strconv.Itoa(int(1/cfg.RPS + 0.5))
	}

	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.RPS <= 0 || !cfg.applies(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ip := httputil.ClientIP(r, cfg.TrustProxy)
			if !limiter.Allow(ip) {
				metrics.IncRateLimited(r.URL.Path)
				logger.Warn("rate limit exceeded",
					"component", "ratelimit",
					"remote_ip", ip,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", retryAfter)
				httputil.WriteError(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
	return mw, limiter
}
