package fraud

import (
	"sync"
	"time"
)

// IPRateLimiter is a sliding-window limiter keyed by request IP: a bounded
// FIFO of monotonic event times per key, head-evicted on every access. It is
// the only admission control in the pipeline; a denied request becomes an
// in-band block verdict rather than a 429.
type IPRateLimiter struct {
	window time.Duration
	max    int

	mu     sync.Mutex
	events map[string][]time.Time
	calls  int
	now    func() time.Time
}

const limiterPurgeEvery = 512

// NewIPRateLimiter allows max requests per window per IP.
func NewIPRateLimiter(windowSeconds, maxRequestsPerIP int) *IPRateLimiter {
	return &IPRateLimiter{
		window: time.Duration(windowSeconds) * time.Second,
		max:    maxRequestsPerIP,
		events: make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records an event for the IP and reports whether it fits the window.
// Requests without a resolvable IP are never limited.
func (l *IPRateLimiter) Allow(ip string) bool {
	if ip == "" {
		return true
	}

	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls >= limiterPurgeEvery {
		l.calls = 0
		for key, events := range l.events {
			if len(events) == 0 || events[len(events)-1].Before(cutoff) {
				delete(l.events, key)
			}
		}
	}

	events := l.events[ip]
	for len(events) > 0 && events[0].Before(cutoff) {
		events = events[1:]
	}

	if len(events) >= l.max {
		l.events[ip] = events
		return false
	}

	l.events[ip] = append(events, now)
	return true
}
