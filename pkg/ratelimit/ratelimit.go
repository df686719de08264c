// Package ratelimit paces outbound requests to scraped sites so the
// pipeline stays polite toward hosts it does not control.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter spaces operations at a minimum interval with optional jitter.
// Admission is first-come first-served: each caller reserves the next free
// slot under a lock, then sleeps until its slot without holding the lock,
// so later callers cannot starve earlier ones.
type Limiter struct {
	interval time.Duration
	jitter   float64 // 0.0 to 1.0

	mu   sync.Mutex
	next time.Time
}

// New creates a limiter allowing rps requests per second. jitter in [0,1]
// randomizes each slot by up to +/- jitter*interval. rps <= 0 yields a
// limiter that never blocks.
func New(rps float64, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	l := &Limiter{jitter: jitter}
	if rps > 0 {
		l.interval = time.Duration(float64(time.Second) / rps)
	}
	return l
}

// Wait blocks until the caller's reserved slot arrives or the context is
// cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := time.Now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	step := l.interval
	if l.jitter > 0 {
		factor := (rand.Float64() * 2) - 1.0 // -1.0 to 1.0
		step += time.Duration(float64(step) * l.jitter * factor)
		if step < 0 {
			step = 0
		}
	}
	l.next = slot.Add(step)
	l.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
