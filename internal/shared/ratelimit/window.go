// Package ratelimit implements an in-process sliding-window limiter keyed by
// caller address. State lives in one process; running several replicas
// multiplies the effective allowance.
package ratelimit

import (
	"sync"
	"time"
)

// Window allows at most Limit events per key within Period.
type Window struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu        sync.Mutex
	keys      map[string][]time.Time
	lastPrune time.Time
}

// New builds a Window. A nil now uses time.Now.
func New(limit int, period time.Duration, now func() time.Time) *Window {
	if now == nil {
		now = time.Now
	}
	return &Window{
		limit:  limit,
		period: period,
		now:    now,
		keys:   make(map[string][]time.Time),
	}
}

// Allow records an attempt for key. When the key is over its allowance the
// attempt is not recorded and retryAfter reports when the oldest event expires.
func (w *Window) Allow(key string) (allowed bool, retryAfter time.Duration) {
	if w == nil || w.limit <= 0 || w.period <= 0 {
		return true, 0
	}
	now := w.now()
	cutoff := now.Add(-w.period)

	w.mu.Lock()
	defer w.mu.Unlock()

	if now.Sub(w.lastPrune) > w.period {
		w.pruneLocked(cutoff)
		w.lastPrune = now
	}

	events := trim(w.keys[key], cutoff)
	if len(events) >= w.limit {
		w.keys[key] = events
		return false, events[0].Add(w.period).Sub(now)
	}
	w.keys[key] = append(events, now)
	return true, 0
}

// Remaining reports how many attempts key has left in the current window.
func (w *Window) Remaining(key string) int {
	if w == nil || w.limit <= 0 {
		return 0
	}
	cutoff := w.now().Add(-w.period)
	w.mu.Lock()
	defer w.mu.Unlock()
	events := trim(w.keys[key], cutoff)
	if len(events) == 0 {
		delete(w.keys, key)
	} else {
		w.keys[key] = events
	}
	n := w.limit - len(events)
	if n < 0 {
		return 0
	}
	return n
}

// Limit returns the configured allowance per window.
func (w *Window) Limit() int { return w.limit }

// Period returns the window length.
func (w *Window) Period() time.Duration { return w.period }

func (w *Window) pruneLocked(cutoff time.Time) {
	for k, events := range w.keys {
		events = trim(events, cutoff)
		if len(events) == 0 {
			delete(w.keys, k)
			continue
		}
		w.keys[k] = events
	}
}

// trim filters in place, keeping events strictly after cutoff. Callers must
// store the result since the backing array is rewritten.
func trim(events []time.Time, cutoff time.Time) []time.Time {
	valid := events[:0]
	for _, ts := range events {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	return valid
}
