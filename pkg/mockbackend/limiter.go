package mockbackend

import (
	"sync"
	"time"
)

// Limiter is a fixed-window request limiter that tracks request counts
// per client key in memory.
type Limiter struct {
	rpm int
	now func() time.Time

	mu       sync.Mutex
	counters map[string]*counter
}

type counter struct {
	count    int
	windowAt time.Time
}

// NewLimiter creates a limiter allowing rpm requests per client per minute.
// A non-positive rpm disables limiting.
func NewLimiter(rpm int) *Limiter {
	return &Limiter{
		rpm:      rpm,
		now:      time.Now,
		counters: make(map[string]*counter),
	}
}

// Allow records a request for key. When the client is over its limit it
// returns false and the time until the current window ends.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l == nil || l.rpm <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.counters[key]
	if !ok || now.Sub(c.windowAt) >= time.Minute {
		l.counters[key] = &counter{count: 1, windowAt: now}
		l.sweep(now)
		return true, 0
	}

	if c.count >= l.rpm {
		return false, c.windowAt.Add(time.Minute).Sub(now)
	}
	c.count++
	return true, 0
}

// sweep drops counters whose window has ended. Must be called with mu held.
func (l *Limiter) sweep(now time.Time) {
	for k, c := range l.counters {
		if now.Sub(c.windowAt) >= time.Minute {
			delete(l.counters, k)
		}
	}
}
