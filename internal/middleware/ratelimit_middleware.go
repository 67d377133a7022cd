package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default policy: 5 invalid attempts per minute per IP.
const (
	defaultInvalidAuthBurst = 5
	idleLimiterTTL          = 5 * time.Minute
)

// InvalidAuthRateLimiter throttles failed authentication attempts per IP.
type InvalidAuthRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*ipLimiter
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewInvalidAuthRateLimiter allows 5 invalid attempts per minute per IP and
// starts the background cleanup of idle entries.
func NewInvalidAuthRateLimiter() *InvalidAuthRateLimiter {
	rl := newInvalidAuthRateLimiter(rate.Every(time.Minute/defaultInvalidAuthBurst), defaultInvalidAuthBurst)
	go rl.cleanup()
	return rl
}

func newInvalidAuthRateLimiter(limit rate.Limit, burst int) *InvalidAuthRateLimiter {
	return &InvalidAuthRateLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*ipLimiter),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Allow records an invalid attempt from ip and reports whether it is still
// within the allowance.
func (r *InvalidAuthRateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Close stops the cleanup goroutine.
func (r *InvalidAuthRateLimiter) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *InvalidAuthRateLimiter) cleanup() {
	ticker := time.NewTicker(idleLimiterTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.stop:
			return
		}
	}
}

func (r *InvalidAuthRateLimiter) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for ip, entry := range r.limiters {
		if now.Sub(entry.lastSeen) > idleLimiterTTL {
			delete(r.limiters, ip)
		}
	}
}
