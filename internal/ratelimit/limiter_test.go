package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// newTestLimiter builds a limiter with a controllable clock. The prune loop
// still runs on real time but never fires within a test.
func newTestLimiter(maxReq int, window time.Duration) (*Limiter, *time.Time) {
	l := New(maxReq, window)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowUnderCeiling(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)
	defer l.Stop()

	assert.True(t, l.Allow("key"))
	assert.True(t, l.Allow("key"))
	assert.True(t, l.Allow("key"))
	assert.False(t, l.Allow("key"), "4th request in window should be rejected")
}

func TestCeilingIsPerKey(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	defer l.Stop()

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "key b has its own window")
}

func TestWindowReset(t *testing.T) {
	l, now := newTestLimiter(1, time.Minute)
	defer l.Stop()

	assert.True(t, l.Allow("key"))
	assert.False(t, l.Allow("key"))

	*now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("key"), "new window should admit requests again")
}

func TestHundredFirstRequestRejected(t *testing.T) {
	l, _ := newTestLimiter(100, time.Minute)
	defer l.Stop()

	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("token-digest"), "request %d should pass", i+1)
	}
	assert.False(t, l.Allow("token-digest"), "101st request within a minute must be rejected")
}

func TestRemaining(t *testing.T) {
	l, now := newTestLimiter(5, time.Minute)
	defer l.Stop()

	remaining, resetAt := l.Remaining("key")
	assert.Equal(t, 5, remaining)
	assert.Equal(t, now.Add(time.Minute), resetAt)

	l.Allow("key")
	l.Allow("key")

	remaining, _ = l.Remaining("key")
	assert.Equal(t, 3, remaining)
}

func TestPruneDropsExpiredWindows(t *testing.T) {
	l, now := newTestLimiter(10, time.Minute)
	defer l.Stop()

	l.Allow("stale")
	l.Allow("fresh")

	*now = now.Add(2 * time.Minute)
	l.Allow("fresh") // opens a new window at the advanced time

	l.prune()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.entries, "stale")
	assert.Contains(t, l.entries, "fresh")
}
