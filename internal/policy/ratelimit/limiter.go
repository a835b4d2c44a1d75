// Package ratelimit implements per-client token buckets for the preview routes.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdleTTL = 10 * time.Minute

// Config holds rate limiter configuration.
type Config struct {
	RPS   float64
	Burst int
	// IdleTTL drops buckets for clients not seen for this long (default 10m).
	IdleTTL time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages one token bucket per client key.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	sweptAt time.Time
}

// New creates a new Limiter. A non-positive RPS disables limiting.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    r,
		burst:   burst,
		idleTTL: ttl,
		now:     time.Now,
	}
}

// Allow reports whether key may proceed now, consuming a token if so.
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}
	l.mu.Lock()
	now := l.now()
	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep must be called with l.mu held.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.sweptAt) < l.idleTTL {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.sweptAt = now
}
