package worker

import (
	"context"
	"time"
)

// retryBaseDelay is the first in-job backoff step; tests shorten it.
var retryBaseDelay = time.Second

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := retryBaseDelay << uint(i-1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// computeRetryBackoff is how long the retry scheduler waits after the
// attempts-th failure before trying again: interval, 2x, 4x... capped at 30m.
func computeRetryBackoff(interval time.Duration, attempts int) time.Duration {
	const maxBackoff = 30 * time.Minute
	if attempts < 1 {
		return 0
	}
	d := interval
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// defaultClaimLease bounds how long a crashed worker can block a sale. It
// must outlast one render+upload or one gateway call.
const defaultClaimLease = 5 * time.Minute
