// Package retry re-runs fallible operations that failed for transient reasons,
// backing off exponentially between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"pokemon-investigator/metrics"

	"github.com/rs/zerolog/log"
)

// DefaultBaseDelay is the wait before the second attempt.
const DefaultBaseDelay = time.Second

// Policy bounds one retry sequence. The zero value makes a single attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep waits between attempts. Nil uses a timer that honours ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NonRetryableError is returned when an attempt fails permanently.
type NonRetryableError struct {
	Context     string
	Attempt     int
	MaxAttempts int
	Cause       error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable error for %s on attempt %d/%d: %v", e.Context, e.Attempt, e.MaxAttempts, e.Cause)
}

func (e *NonRetryableError) Unwrap() error { return e.Cause }

// ExhaustedError is returned when every attempt failed transiently.
type ExhaustedError struct {
	Context  string
	Attempts int
	Cause    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed for %s: %v", e.Attempts, e.Context, e.Cause)
}

func (e *ExhaustedError) Unwrap() error { return e.Cause }

// IsTransient reports whether err is worth retrying. Errors exposing a
// Transient() bool method decide for themselves; otherwise deadlines and
// network errors are transient and everything else, cancellation included,
// is permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var t interface{ Transient() bool }
	if errors.As(err, &t) {
		return t.Transient()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// Delay returns the wait after the given failed attempt: base * 2^(attempt-1).
func Delay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(uint64(1)<<uint(attempt-1))
}

// Do runs op until it succeeds, fails permanently, or MaxAttempts is spent.
// It returns the value, the number of attempts made and the final error.
// desc names the operation in errors and logs.
func Do[T any](ctx context.Context, p Policy, desc string, op func(context.Context) (T, error)) (T, int, error) {
	var zero T
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, attempt, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return zero, attempt, &NonRetryableError{Context: desc, Attempt: attempt, MaxAttempts: maxAttempts, Cause: err}
		}
		if attempt == maxAttempts {
			break
		}

		delay := Delay(p.BaseDelay, attempt)
		log.Warn().Err(err).Str("op", desc).Int("attempt", attempt).Int("maxAttempts", maxAttempts).Dur("delay", delay).Msg("retry: transient failure; backing off")
		metrics.RetriesTotal.Inc()
		if err := sleep(ctx, delay); err != nil {
			return zero, attempt, &NonRetryableError{Context: desc, Attempt: attempt, MaxAttempts: maxAttempts, Cause: err}
		}
	}
	return zero, maxAttempts, &ExhaustedError{Context: desc, Attempts: maxAttempts, Cause: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
