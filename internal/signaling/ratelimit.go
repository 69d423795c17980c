package signaling

import (
	"context"
	"sync"
	"time"
)

const (
	// rateWindow and rateMax bound how many events one connection may send
	// per fixed window; excess events are dropped with an error reply.
	rateWindow = time.Second
	rateMax    = 10

	// limiterStaleAfter is how long after its window expires an idle entry
	// survives before the janitor reclaims it.
	limiterStaleAfter = time.Minute
	limiterSweepEvery = time.Minute
)

type limiterEntry struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window per-connection event limiter.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string]*limiterEntry
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		window:  rateWindow,
		max:     rateMax,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

// Allow records one event for the connection and reports whether it is
// within the window's budget.
func (l *RateLimiter) Allow(connID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[connID]
	if !ok || now.After(e.resetAt) {
		l.entries[connID] = &limiterEntry{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	e.count++
	return e.count <= l.max
}

// Forget drops the connection's entry. Called on disconnect.
func (l *RateLimiter) Forget(connID string) {
	l.mu.Lock()
	delete(l.entries, connID)
	l.mu.Unlock()
}

// Sweep reclaims entries whose window expired more than limiterStaleAfter
// ago.
func (l *RateLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for id, e := range l.entries {
		if now.After(e.resetAt.Add(limiterStaleAfter)) {
			delete(l.entries, id)
		}
	}
}

// Run sweeps periodically until ctx is cancelled.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
