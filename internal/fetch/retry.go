package fetch

import (
	"context"
	"time"
)

// Retry calls fn until it succeeds or attempts are exhausted, waiting delay
// between calls. onRetry, if set, sees each failure that will be retried.
func Retry(ctx context.Context, attempts int, delay time.Duration, onRetry func(attempt int, err error), fn func() error) error {
	if attempts <= 1 {
		return fn()
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 && onRetry != nil {
			onRetry(i+1, err)
		}
	}
	return err
}
