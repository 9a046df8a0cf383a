// Package ratelimit throttles inbound socket messages per connection and
// HTTP requests per IP.
package ratelimit

import (
	"sync"
	"time"
)

// Config controls the per-connection message limiter.
type Config struct {
	MessagesPerWindow int
	WindowDuration    time.Duration
	BurstLimit        int
}

// DefaultConfig returns the default limiter settings: 10 messages per 1s
// window with a 5 message burst.
func DefaultConfig() Config {
	return Config{
		MessagesPerWindow: 10,
		WindowDuration:    time.Second,
		BurstLimit:        5,
	}
}

// idleTimeout is how long an entry may sit unused before Sweep drops it.
const idleTimeout = 5 * time.Minute

// entry tracks one connection's admission state.
type entry struct {
	sendTimes      []time.Time
	burstCount     int
	lastBurstReset time.Time
}

// MessageLimiter implements a sliding-window limiter with a secondary burst
// counter, keyed by connection id. All checks share one mutex; admission work
// per check is constant amortized and the map stays small relative to open
// connections.
type MessageLimiter struct {
	cfg     Config
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMessageLimiter builds a limiter with the given configuration.
func NewMessageLimiter(cfg Config) *MessageLimiter {
	return &MessageLimiter{
		cfg:     cfg,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow reports whether the connection may send one more message now, and
// records the send when it may.
func (l *MessageLimiter) Allow(connID string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[connID]
	if !ok {
		e = &entry{lastBurstReset: now}
		l.entries[connID] = e
	}

	// Drop sends that fell out of the window.
	cutoff := now.Add(-l.cfg.WindowDuration)
	keep := 0
	for _, t := range e.sendTimes {
		if t.After(cutoff) {
			e.sendTimes[keep] = t
			keep++
		}
	}
	e.sendTimes = e.sendTimes[:keep]

	if now.Sub(e.lastBurstReset) >= time.Second {
		e.burstCount = 0
		e.lastBurstReset = now
	}

	if e.burstCount >= l.cfg.BurstLimit {
		return false
	}
	if len(e.sendTimes) >= l.cfg.MessagesPerWindow {
		return false
	}

	e.sendTimes = append(e.sendTimes, now)
	e.burstCount++
	return true
}

// Status describes a connection's current window.
type Status struct {
	MessagesRemaining int
	ResetIn           time.Duration
	IsLimited         bool
}

// StatusFor reports the window state for a connection without mutating it.
func (l *MessageLimiter) StatusFor(connID string) Status {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[connID]
	if !ok {
		return Status{MessagesRemaining: l.cfg.MessagesPerWindow, ResetIn: l.cfg.WindowDuration}
	}

	cutoff := now.Add(-l.cfg.WindowDuration)
	inWindow := 0
	for _, t := range e.sendTimes {
		if t.After(cutoff) {
			inWindow++
		}
	}

	remaining := l.cfg.MessagesPerWindow - inWindow
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		MessagesRemaining: remaining,
		ResetIn:           l.cfg.WindowDuration,
		IsLimited:         inWindow >= l.cfg.MessagesPerWindow,
	}
}

// Sweep drops entries whose most recent send is older than the idle timeout.
// The session layer calls it every five minutes.
func (l *MessageLimiter) Sweep() int {
	cutoff := l.now().Add(-idleTimeout)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, e := range l.entries {
		last := e.lastBurstReset
		if n := len(e.sendTimes); n > 0 {
			last = e.sendTimes[n-1]
		}
		if last.Before(cutoff) {
			delete(l.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked connections.
func (l *MessageLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
