package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLimiter returns a limiter with a controllable clock.
func testLimiter(cfg Config) (*MessageLimiter, *time.Time) {
	l := NewMessageLimiter(cfg)
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowUnderLimit(t *testing.T) {
	l, _ := testLimiter(Config{MessagesPerWindow: 10, WindowDuration: time.Second, BurstLimit: 10})

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("c1"), "message %d", i)
	}
}

func TestDenyAtWindowLimit(t *testing.T) {
	l, _ := testLimiter(Config{MessagesPerWindow: 10, WindowDuration: time.Second, BurstLimit: 100})

	for i := 0; i < 10; i++ {
		require.True(t, l.Allow("c1"))
	}
	assert.False(t, l.Allow("c1"), "eleventh message must be denied")
}

func TestBurstLimit(t *testing.T) {
	l, now := testLimiter(Config{MessagesPerWindow: 100, WindowDuration: 10 * time.Second, BurstLimit: 5})

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("c1"))
	}
	assert.False(t, l.Allow("c1"), "burst exhausted")

	// Burst resets after one second even inside a longer window.
	*now = now.Add(time.Second)
	assert.True(t, l.Allow("c1"))
}

func TestWindowSlides(t *testing.T) {
	l, now := testLimiter(Config{MessagesPerWindow: 2, WindowDuration: time.Second, BurstLimit: 100})

	require.True(t, l.Allow("c1"))
	require.True(t, l.Allow("c1"))
	require.False(t, l.Allow("c1"))

	*now = now.Add(1100 * time.Millisecond)
	assert.True(t, l.Allow("c1"), "old sends fell out of the window")
}

func TestConnectionsAreIndependent(t *testing.T) {
	l, _ := testLimiter(Config{MessagesPerWindow: 1, WindowDuration: time.Second, BurstLimit: 1})

	require.True(t, l.Allow("c1"))
	require.False(t, l.Allow("c1"))
	assert.True(t, l.Allow("c2"), "a second connection has its own window")
}

func TestStatusFor(t *testing.T) {
	l, _ := testLimiter(Config{MessagesPerWindow: 3, WindowDuration: time.Second, BurstLimit: 10})

	status := l.StatusFor("c1")
	assert.Equal(t, 3, status.MessagesRemaining)
	assert.False(t, status.IsLimited)

	require.True(t, l.Allow("c1"))
	require.True(t, l.Allow("c1"))
	status = l.StatusFor("c1")
	assert.Equal(t, 1, status.MessagesRemaining)
	assert.False(t, status.IsLimited)

	require.True(t, l.Allow("c1"))
	status = l.StatusFor("c1")
	assert.Equal(t, 0, status.MessagesRemaining)
	assert.True(t, status.IsLimited)
}

func TestSweepDropsIdleEntries(t *testing.T) {
	l, now := testLimiter(DefaultConfig())

	require.True(t, l.Allow("idle"))
	*now = now.Add(4 * time.Minute)
	require.True(t, l.Allow("fresh"))
	require.Equal(t, 2, l.Len())

	*now = now.Add(90 * time.Second) // idle is now >5m old, fresh is not
	removed := l.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, l.Len())

	// The surviving connection keeps its state.
	status := l.StatusFor("fresh")
	assert.False(t, status.IsLimited)
}

func TestSweepKeepsEntriesWithNoSends(t *testing.T) {
	l, now := testLimiter(Config{MessagesPerWindow: 0, WindowDuration: time.Second, BurstLimit: 0})

	// A denied-only connection still has an entry pinned by lastBurstReset.
	l.Allow("denied")
	require.Equal(t, 1, l.Len())

	removed := l.Sweep()
	assert.Equal(t, 0, removed)

	*now = now.Add(6 * time.Minute)
	removed = l.Sweep()
	assert.Equal(t, 1, removed)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10, cfg.MessagesPerWindow)
	assert.Equal(t, time.Second, cfg.WindowDuration)
	assert.Equal(t, 5, cfg.BurstLimit)
}
