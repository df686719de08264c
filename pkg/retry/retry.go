// Package retry provides a generic attempt-with-backoff utility driven by
// an explicit policy value rather than ad hoc loops at call sites.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy configures retry behaviour. The zero value performs a single
// attempt with no delay.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; it doubles each
	// further attempt.
	BaseDelay time.Duration
	// Jitter in [0,1] randomizes each delay by +/- Jitter*delay.
	Jitter float64
	// MaxDelay caps the backoff. Zero means no cap.
	MaxDelay time.Duration
}

// ErrNotRetryable wraps an error that the retryable classifier rejected.
var ErrNotRetryable = errors.New("not retryable")

// Do invokes fn until it succeeds, the policy is exhausted, or the context
// is cancelled. retryable decides whether a given error is worth another
// attempt; a nil retryable treats every error as transient. delayFor, when
// non-nil, may override the computed backoff for a specific error (used
// for rate-limit responses that warrant a longer pause).
//
// The last error is returned on exhaustion; no error is ever raised as a
// panic. fn runs at least once even with MaxAttempts <= 1.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error), retryable func(error) bool, delayFor func(error, time.Duration) time.Duration) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.backoff(attempt)
			if delayFor != nil {
				delay = delayFor(lastErr, delay)
			}
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if retryable != nil && !retryable(err) {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

// backoff returns the delay preceding the given attempt (attempt >= 1),
// with exponential growth and optional jitter.
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	if delay <= 0 {
		return 0
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.Jitter > 0 {
		j := p.Jitter
		if j > 1 {
			j = 1
		}
		factor := (rand.Float64() * 2) - 1.0 // -1.0 to 1.0
		delay += time.Duration(float64(delay) * j * factor)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}
