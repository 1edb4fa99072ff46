// Package ratelimit admits or rejects tool calls per throttling key on a
// fixed rolling window.
package ratelimit

import (
	"sync"
	"time"
)

// Config is a per-caller-shape ceiling and window.
type Config struct {
	Ceiling int
	Window  time.Duration
}

// Result reports the outcome of a check-and-consume.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type record struct {
	count   int
	resetAt time.Time
}

// Limiter tracks call counts per key. The map is the only shared mutable
// state touched by concurrent dispatches; check-then-increment holds the
// mutex for the whole step so two calls at the ceiling boundary cannot both
// be admitted.
type Limiter struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
}

// NewLimiter creates an empty Limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// CheckAndConsume admits the call and consumes one unit of budget, or
// rejects it without consuming any.
func (l *Limiter) CheckAndConsume(key string, cfg Config) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[key]
	if !ok || !now.Before(rec.resetAt) {
		// First call in a window, or the old window expired: replace, never merge.
		rec = &record{count: 1, resetAt: now.Add(cfg.Window)}
		l.records[key] = rec
		return Result{Allowed: true, Remaining: cfg.Ceiling - 1, ResetAt: rec.resetAt}
	}

	if rec.count >= cfg.Ceiling {
		// A denied call must not consume budget.
		return Result{Allowed: false, Remaining: 0, ResetAt: rec.resetAt}
	}

	rec.count++
	return Result{Allowed: true, Remaining: cfg.Ceiling - rec.count, ResetAt: rec.resetAt}
}

// Sweep deletes records whose window has expired. Purely a memory bound;
// correctness never depends on it because expired records are lazily
// replaced in CheckAndConsume.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, rec := range l.records {
		if !now.Before(rec.resetAt) {
			delete(l.records, key)
		}
	}
}

// StartSweeper runs Sweep every interval until stop is closed.
func (l *Limiter) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Sweep()
			case <-stop:
				return
			}
		}
	}()
}
