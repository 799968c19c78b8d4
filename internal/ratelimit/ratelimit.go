// Package ratelimit gates outbound requests per source with a fixed
// 60-second window counter. The window resets abruptly, so a burst that
// straddles a boundary can reach twice the nominal budget; callers accept
// that in exchange for a trivially cheap check.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// Limiter tracks per-key request counts. It is an owned instance, not a
// package-level singleton, and is safe for concurrent use. State is
// process-local: running two instances doubles the effective limit.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	period  time.Duration
	now     func() time.Time
}

// New returns a limiter with the standard one-minute window.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		period:  time.Minute,
		now:     time.Now,
	}
}

// NewWithClock returns a limiter with an injected clock for tests.
func NewWithClock(now func() time.Time) *Limiter {
	l := New()
	l.now = now
	return l
}

// Allow consumes one request from key's budget if the current window has
// capacity. It never blocks; false means the caller must abort or requeue.
func (l *Limiter) Allow(key string, limitPerMinute int) bool {
	if limitPerMinute <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now()
	w, ok := l.windows[key]
	if !ok || t.Sub(w.start) >= l.period {
		w = &window{start: t}
		l.windows[key] = w
	}
	if w.count >= limitPerMinute {
		return false
	}
	w.count++
	return true
}

// Remaining reports how many requests are left in key's current window.
func (l *Limiter) Remaining(key string, limitPerMinute int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().Sub(w.start) >= l.period {
		return limitPerMinute
	}
	if rem := limitPerMinute - w.count; rem > 0 {
		return rem
	}
	return 0
}
