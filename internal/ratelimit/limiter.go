// Package ratelimit implements an in-process request rate limiter keyed by
// arbitrary strings (token digests, client IPs).
//
// Counting is windowed and approximate: concurrent requests against the
// same key serialize on one mutex, but a request landing exactly on a
// window boundary may be counted in either window. Exact-once accuracy is
// not required for abuse ceilings; this is a deliberate design choice, not
// a defect. State lives only in this process and resets on restart.
package ratelimit

import (
	"sync"
	"time"
)

// pruneInterval is how often expired windows are removed from the map to
// bound memory. Pruning is advisory housekeeping: expired windows are also
// detected lazily on next access, so correctness never depends on it.
const pruneInterval = 5 * time.Minute

// entry tracks request counts for a single key within a time window.
type entry struct {
	count   int
	resetAt time.Time
}

// Limiter is a process-scoped rate limiting service. Construct one at
// startup and inject it wherever limiting is needed; there is no ambient
// global state.
type Limiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	entries map[string]*entry

	// now is swappable for tests.
	now func() time.Time

	stop chan struct{}
	done chan struct{}
}

// New creates a Limiter allowing max requests per key per window and starts
// its background prune loop. Call Stop when the process shuts down.
func New(max int, window time.Duration) *Limiter {
	l := &Limiter{
		max:     max,
		window:  window,
		entries: make(map[string]*entry),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.pruneLoop()
	return l
}

// Allow reports whether a request for key is within the ceiling. The
// request is counted regardless of the outcome.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || e.resetAt.Before(now) {
		// First request, or the previous window has lapsed.
		l.entries[key] = &entry{count: 1, resetAt: now.Add(l.window)}
		return true
	}

	e.count++
	return e.count <= l.max
}

// Remaining returns how many requests are left for key in the current
// window, and when the window resets.
func (l *Limiter) Remaining(key string) (int, time.Time) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || e.resetAt.Before(now) {
		return l.max, now.Add(l.window)
	}
	return max(0, l.max-e.count), e.resetAt
}

// Stop terminates the background prune loop. Idempotent use is not
// supported; call exactly once.
func (l *Limiter) Stop() {
	close(l.stop)
	<-l.done
}

// pruneLoop removes expired windows every pruneInterval.
func (l *Limiter) pruneLoop() {
	defer close(l.done)

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.prune()
		case <-l.stop:
			return
		}
	}
}

// prune drops every entry whose window has lapsed.
func (l *Limiter) prune() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		if e.resetAt.Before(now) {
			delete(l.entries, key)
		}
	}
}
