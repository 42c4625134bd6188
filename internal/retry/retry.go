// Package retry wraps startup-time operations that may need a few attempts,
// such as waiting for the database to accept connections. Outbound feed
// fetches never go through here: a failed source waits for the next run.
package retry

import (
	"context"
	"fmt"
	"time"

	"mmnews/internal/logger"
)

// Do runs fn up to attempts times with a linearly growing delay between
// tries. The context cancels the wait, not a running fn.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}
		logger.Warn("attempt failed, retrying", "attempt", attempt, "of", attempts, "error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * delay):
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
