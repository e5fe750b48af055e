// Package retry implements the backoff-then-escalate policy applied to
// transient ModelUnavailable failures (spec.md §7). Grounded on the
// teacher's internal/agent retry loop embedded in loop.go, pulled out here
// into its own reusable helper.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy configures exponential backoff with jitter.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy retries three times, doubling from 500ms up to 8s.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
}

// ErrAttemptsExhausted is returned when every attempt failed.
var ErrAttemptsExhausted = errors.New("retry: attempts exhausted")

// Do runs fn up to MaxAttempts times, sleeping with exponential backoff and
// jitter between attempts, as long as shouldRetry(err) reports true. It
// stops early, without sleeping, on the first non-retryable error or on
// context cancellation.
func Do(ctx context.Context, p Policy, shouldRetry func(error) bool, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := p.BaseDelay
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		jittered := delay/2 + time.Duration(rand.Int63n(int64(delay)))
		if jittered > p.MaxDelay {
			jittered = p.MaxDelay
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jittered):
		}
		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return lastErr
}
