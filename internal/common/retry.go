package common

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryConfig bounds the exponential backoff loop.
type RetryConfig struct {
	MaxRetries   int           // additional attempts after the first failure
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // backoff ceiling
	Factor       float64       // backoff multiplier per attempt
}

// DefaultRetryConfig returns the standard pipeline retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Factor:       2,
	}
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Factor < 1 {
		c.Factor = 2
	}
	return c
}

// delayFor computes the backoff delay for a zero-based attempt number,
// capped at MaxDelay.
func (c RetryConfig) delayFor(attempt int) time.Duration {
	d := c.InitialDelay
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * c.Factor)
		if d >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

// RetryableError marks an error as transient. The retry executor retries only
// errors that implement this interface and report true, or that are wrapped by
// MarkRetryable.
type RetryableError interface {
	error
	Retryable() bool
}

type retryableWrapper struct{ err error }

func (w *retryableWrapper) Error() string   { return w.err.Error() }
func (w *retryableWrapper) Unwrap() error   { return w.err }
func (w *retryableWrapper) Retryable() bool { return true }

// MarkRetryable wraps err so the retry executor will retry it.
func MarkRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableWrapper{err: err}
}

// IsRetryable reports whether err is classified as transient.
func IsRetryable(err error) bool {
	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return false
}

// RetriesExhaustedError is returned when a retryable operation keeps failing
// after the configured number of attempts.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Last }

// Retry executes op, retrying transient failures with bounded exponential
// backoff. Terminal errors (validation, duplicate-key) are returned
// immediately without retry. The backoff sleep is context-aware — a cancelled
// context aborts the loop with ctx.Err().
//
// The label appears in retry log lines so per-symbol noise is attributable.
func Retry(ctx context.Context, logger *Logger, cfg RetryConfig, label string, op func(context.Context) error) error {
	cfg = cfg.normalized()

	var lastErr error
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		if attempt >= cfg.MaxRetries {
			return &RetriesExhaustedError{Attempts: attempt + 1, Last: lastErr}
		}

		delay := cfg.delayFor(attempt)
		logger.Warn().
			Str("operation", label).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("Transient failure, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
