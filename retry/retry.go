// Package retry provides a bounded-retry wrapper around a user-supplied
// function, with an inter-attempt delay.
package retry

import (
	"time"

	"github.com/SirClappington/enq/perrors"
)

// Do calls fn up to maxAttempts total times (the first call counts toward
// the limit — "maxAttempts=3" means 3 total attempts, not 1 plus 3
// retries). It sleeps delay between failures. On the final failure it
// returns a *perrors.MaxRetriesError wrapping the last error.
func Do(fn func() error, maxAttempts int, delay time.Duration) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt < maxAttempts && delay > 0 {
			time.Sleep(delay)
		}
	}
	return perrors.NewMaxRetriesError(maxAttempts, lastErr)
}

// Do2 is Do for functions that also produce a value on success.
func Do2[T any](fn func() (T, error), maxAttempts int, delay time.Duration) (T, error) {
	var (
		lastErr error
		zero    T
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt < maxAttempts && delay > 0 {
			time.Sleep(delay)
		}
	}
	return zero, perrors.NewMaxRetriesError(maxAttempts, lastErr)
}
