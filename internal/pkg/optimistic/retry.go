// Package optimistic carries the shared version-conflict sentinel and the
// bounded retry policy applied at call sites that mutate version-fenced
// aggregates.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrConflict is returned by repositories when a versioned write observes a
// stale version. Callers retry from a fresh read; the write is never merged.
var ErrConflict = errors.New("optimistic: version conflict")

const (
	DefaultAttempts = 3
	DefaultDelay    = 10 * time.Millisecond
)

// Retry runs fn up to attempts times, retrying only on ErrConflict with the
// delay doubling between attempts. Any other error, including domain
// validation failures, aborts immediately.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}

		err = fn(ctx)
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("retries exhausted after %d attempts: %w", attempts, err)
}
