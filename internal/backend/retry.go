package backend

import (
	"context"
	"time"
)

// Retry executes fn with retries, backoff, and cancellation support.
//
// fn must return nil on success. Any non-nil error is treated as retryable.
// Only the heartbeat check uses this; predictions are never retried.
func Retry(
	ctx context.Context,
	policy RetryPolicy,
	fn func(ctx context.Context) error,
) error {
	var attempt int
	backoff := policy.BaseBackoff

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		attempt++
		if attempt > policy.MaxRetries {
			return err
		}

		delay := backoff
		if policy.JitterFn != nil {
			delay += policy.JitterFn(backoff)
		}
		if policy.MaxBackoff > 0 && delay > policy.MaxBackoff {
			delay = policy.MaxBackoff
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
			backoff *= 2
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
