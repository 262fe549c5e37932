// Package retry wraps fallible operations in bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

// Policy configures exponential backoff.
type Policy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64

	// Logger receives a warning for every failed attempt that will be retried.
	Logger *slog.Logger
}

// DefaultPolicy returns 3 attempts starting at 500ms, capped at 30s, doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		BaseDelay:       500 * time.Millisecond,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2.0,
	}
}

// Decision tells DoWithClassifier whether an error is worth another attempt.
type Decision int

const (
	Retry Decision = iota
	Abort
)

// Permanent marks err as not worth retrying. errors.Is and errors.As still
// see through to err.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// IsPermanent reports whether err, or anything it wraps, was marked Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Classify aborts on cancellation, missing files, an open circuit and
// Permanent errors, and retries everything else.
func Classify(err error) Decision {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Abort
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, ErrCircuitOpen):
		return Abort
	case IsPermanent(err):
		return Abort
	}
	return Retry
}

// Backoff returns the un-jittered delay that follows the given failed attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := p.ExponentialBase
	if base <= 0 {
		base = 2.0
	}
	d := float64(p.BaseDelay) * math.Pow(base, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// jittered scales d by a uniform factor in [0.75, 1.25].
func jittered(d time.Duration) time.Duration {
	factor := 0.75 + rand.Float64()*0.5
	return time.Duration(float64(d) * factor)
}

// Do runs fn until it succeeds or the policy's attempts are exhausted.
// The error from the last attempt is returned as-is.
func Do(ctx context.Context, p Policy, operation string, fn func(ctx context.Context) error) error {
	return DoWithClassifier(ctx, p, operation, fn, nil)
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	return DoValueWithClassifier(ctx, p, operation, fn, nil)
}

// DoValueWithClassifier is DoValue with an error classifier.
func DoValueWithClassifier[T any](ctx context.Context, p Policy, operation string, fn func(ctx context.Context) (T, error), classify func(error) Decision) (T, error) {
	var out T
	err := DoWithClassifier(ctx, p, operation, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, classify)
	return out, err
}

// DoWithClassifier is Do, except errors classified as Abort are returned
// immediately without consuming the remaining attempts.
func DoWithClassifier(ctx context.Context, p Policy, operation string, fn func(ctx context.Context) error, classify func(error) Decision) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// retry-go's own counter semantics vary across versions, so attempts are
	// counted here and the delay is derived from that count.
	attempt := 0
	return retrygo.Do(
		func() error {
			attempt++
			return fn(ctx)
		},
		retrygo.Context(ctx),
		retrygo.Attempts(uint(attempts)),
		retrygo.LastErrorOnly(true),
		retrygo.RetryIf(func(err error) bool {
			if classify == nil {
				return true
			}
			return classify(err) == Retry
		}),
		retrygo.DelayType(func(_ uint, _ error, _ *retrygo.Config) time.Duration {
			return jittered(p.Backoff(attempt))
		}),
		retrygo.OnRetry(func(_ uint, err error) {
			if attempt < attempts {
				logger.Warn("operation failed, retrying",
					"operation", operation,
					"attempt", attempt,
					"max_attempts", attempts,
					"error", err,
				)
			}
		}),
	)
}
