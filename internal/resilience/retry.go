package resilience

import (
	"context"
	"time"
)

// RetryPolicy controls how Retry re-attempts a failing call.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int
	// Delay is the fixed wait between attempts.
	Delay time.Duration
	// Retryable decides whether an error is worth another attempt.
	// A nil Retryable retries every error.
	Retryable func(error) bool
}

// Retry runs fn until it succeeds, the policy is exhausted, the error is
// not retryable, or ctx is cancelled. The last error is returned
// unwrapped so callers can inspect it with errors.Is.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if werr := wait(ctx, policy.Delay); werr != nil {
				return werr
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if policy.Retryable != nil && !policy.Retryable(err) {
			return err
		}
	}
	return err
}

// wait sleeps for d unless ctx is cancelled first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
