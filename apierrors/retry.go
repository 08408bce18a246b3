package apierrors

import (
	"context"
	"math"
	"time"
)

const (
	MaxRetries        = 3
	InitialBackoff    = 500 * time.Millisecond
	MaxBackoff        = 10 * time.Second
	BackoffMultiplier = 2.0
)

// WithRetry runs fn, retrying with exponential backoff while the returned
// error is retryable. The library never retries internally; this helper is
// for callers that decide transport failures are worth another attempt.
// Quota and rate-limit errors are never retried here, since retrying into an
// already-throttled service extends the penalty window.
func WithRetry(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err = fn()
		if err == nil {
			return nil
		}

		if !IsRetryable(err) || attempt == MaxRetries {
			return err
		}

		backoff := backoffDuration(attempt + 1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return err
}

func backoffDuration(attempt int) time.Duration {
	delay := float64(InitialBackoff) * math.Pow(BackoffMultiplier, float64(attempt))
	backoff := time.Duration(delay)
	if backoff > MaxBackoff {
		return MaxBackoff
	}

	return backoff
}
