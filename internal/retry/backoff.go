// Package retry implements the exponential-backoff retry wrapper
// shared by ingestion reconnects, the LLM client, and venue executors.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/arbengine/arbengine/internal/errkind"
)

// Policy configures exponential backoff with a cap on attempts.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultPolicy mirrors the spec's "exponential-backoff retry up to 3
// attempts" default used by the LLM client and venue A executor.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Second,
	}
}

// ReconnectPolicy mirrors the ingestion adapter's default 5s initial
// reconnect delay.
func ReconnectPolicy() Policy {
	return Policy{
		MaxAttempts:  math.MaxInt32,
		InitialDelay: 5 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     2 * time.Minute,
	}
}

// delayFor returns the backoff delay before attempt n (1-indexed).
func (p Policy) delayFor(n int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(n-1))
	if cap := float64(p.MaxDelay); d > cap {
		d = cap
	}
	return time.Duration(d)
}

// Do runs fn up to MaxAttempts times, sleeping with exponential backoff
// between attempts. It stops early if fn returns a non-retryable
// error (per errkind.IsRetryable) or ctx is cancelled. The last error
// is returned if every attempt fails.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !errkind.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delayFor(attempt)):
		}
	}
	return lastErr
}
