// Package retry wraps a single external call with bounded exponential
// backoff. Classification of errors into retryable and fatal is supplied by
// the caller; fatal errors short-circuit without consuming the remaining
// attempt budget.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy bounds the retry behavior for one operation.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// IsRetryable classifies errors. A nil classifier treats every error as
	// retryable.
	IsRetryable func(error) bool
}

// DefaultPolicy is the budget for default-tier jobs.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}
}

// ProPolicy gives higher-tier jobs a larger attempt budget and a longer base
// delay; their backend is scarcer and worth waiting longer for.
func ProPolicy() Policy {
	return Policy{MaxAttempts: 6, BaseDelay: 5 * time.Second, MaxDelay: 60 * time.Second}
}

// ExhaustedError reports that every attempt failed with a retryable error.
// It preserves the last error so downstream classification still sees the
// original failure kind.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err carries an ExhaustedError.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

// Do runs op up to p.MaxAttempts times. Between attempt i and i+1 it sleeps
// min(BaseDelay<<i, MaxDelay) plus a uniform jitter bounded by BaseDelay so
// concurrent workers hitting the same rate-limited backend do not retry in
// lockstep. A non-retryable error is returned immediately; exhausting the
// budget returns an ExhaustedError wrapping the last failure.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if p.IsRetryable != nil && !p.IsRetryable(err) {
			return zero, err
		}
		if i == attempts-1 {
			break
		}
		if err := sleep(ctx, p.delay(i)); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// delay computes the pause after attempt i (0-indexed).
func (p Policy) delay(i int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	if i > 30 {
		i = 30
	}
	d := p.BaseDelay << uint(i)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d + rand.N(p.BaseDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
