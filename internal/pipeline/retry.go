package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ydzat/literature-review-mcp/internal/llm"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *llm.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

// Retry calls fn until it succeeds, returns a permanent error or MaxRetries
// attempts are spent, sleeping backoff(attempt) between attempts. A cancelled
// ctx during the sleep returns ctx.Err().
func Retry(ctx context.Context, backoff func(attempt int) time.Duration, log *slog.Logger, fn func(attempt int) error) error {
	var err error
	for attempt := range MaxRetries {
		err = fn(attempt)
		if err == nil || !IsRetryable(err) || attempt == MaxRetries-1 {
			return err
		}
		log.Warn("retryable analysis error", "attempt", attempt, "error", err)
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
