package shell

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// ErrOutputTruncated marks a ToolResult whose output hit the byte cap;
// callers still get the captured prefix, just flagged as incomplete.
var ErrOutputTruncated = errors.New("shell: output exceeded the configured cap and was truncated")

// cappedBuffer caps the number of bytes retained, matching the resource
// limit layer's "output byte caps" requirement without buffering an
// unbounded amount of a runaway command's stdout in memory first.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Len() >= b.max {
		b.truncated = true
		return len(p), nil // swallow further bytes but tell the writer nothing failed
	}
	remaining := b.max - b.buf.Len()
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *cappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

// limiter bundles the per-session rate limit and global concurrency cap
// that make up resource-limit layer 4, beyond the per-call wall-clock
// timeout the caller already applies via context.
type limiter struct {
	rate *rate.Limiter
	sem  chan struct{}
}

func newLimiter(perSecond float64, burst, maxConcurrent int) *limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &limiter{
		rate: rate.NewLimiter(rate.Limit(perSecond), burst),
		sem:  make(chan struct{}, maxConcurrent),
	}
}

// acquire blocks until both the rate limit admits the call and a
// concurrency slot is free, returning a release function. It respects ctx
// cancellation on both waits.
func (l *limiter) acquire(ctx context.Context) (func(), error) {
	if err := l.rate.Wait(ctx); err != nil {
		return nil, err
	}
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return func() { <-l.sem }, nil
}
