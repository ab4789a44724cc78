package camera

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy is a bounded retry: at most Attempts tries, Delay apart
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Do calls fn until it succeeds or the attempts are used up. The delay between
// attempts is interruptible by ctx. The last error from fn is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts || p.Delay <= 0 {
			continue
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}
