package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
)

// RetryPolicy is the per-activity contract: how many attempts, how long each
// attempt may run and how long to wait between attempts.
type RetryPolicy struct {
	MaximumAttempts     int
	StartToCloseTimeout time.Duration
	InitialInterval     time.Duration
	BackoffCoefficient  float64
	MaximumInterval     time.Duration
}

var DefaultActivityPolicy = RetryPolicy{
	MaximumAttempts:     3,
	StartToCloseTimeout: 60 * time.Second,
	InitialInterval:     time.Second,
	BackoffCoefficient:  2,
	MaximumInterval:     30 * time.Second,
}

// ApplicationError marks an activity failure as permanent when NonRetryable is set.
type ApplicationError struct {
	Message      string
	NonRetryable bool
	Err          error
}

func (e *ApplicationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ApplicationError) Unwrap() error { return e.Err }

// NonRetryable wraps err so ExecuteActivity gives up after the current attempt.
func NonRetryable(message string, err error) error {
	return &ApplicationError{Message: message, NonRetryable: true, Err: err}
}

func IsNonRetryable(err error) bool {
	var appErr *ApplicationError
	return errors.As(err, &appErr) && appErr.NonRetryable
}

// ActivityError is returned once an activity has exhausted its attempts.
type ActivityError struct {
	Activity string
	Attempts int
	Err      error
}

func (e *ActivityError) Error() string {
	return fmt.Sprintf("activity %s failed after %d attempt(s): %v", e.Activity, e.Attempts, e.Err)
}

func (e *ActivityError) Unwrap() error { return e.Err }

var ErrActivityTimeout = errors.New("activity start-to-close timeout")

// ExecuteActivity runs fn under policy. Each attempt gets its own deadline and
// an attempt that outlives it counts as failed even if fn ignores its context.
func ExecuteActivity[T any](ctx context.Context, policy RetryPolicy, name string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := policy.MaximumAttempts
	if attempts <= 0 {
		attempts = 1
	}
	interval := policy.InitialInterval

	var lastErr error
	attempt := 0
	for attempt < attempts {
		attempt++
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		out, err := runAttempt(ctx, policy.StartToCloseTimeout, fn)
		if err == nil {
			recordActivity(name, "success")
			return out, nil
		}

		lastErr = err
		recordActivity(name, "failure")

		if IsNonRetryable(err) || ctx.Err() != nil {
			break
		}
		if attempt == attempts {
			break
		}

		logger.Warn("activity attempt failed, retrying",
			zap.String("activity", name),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", attempts),
			zap.Duration("backoff", interval),
			zap.Error(err),
		)

		if interval > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, &ActivityError{Activity: name, Attempts: attempt, Err: lastErr}
			}
			interval = nextInterval(interval, policy)
		}
	}

	return zero, &ActivityError{Activity: name, Attempts: attempt, Err: lastErr}
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		out T
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := fn(actx)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-actx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, ErrActivityTimeout
	}
}

func nextInterval(current time.Duration, policy RetryPolicy) time.Duration {
	coef := policy.BackoffCoefficient
	if coef < 1 {
		coef = 1
	}
	next := time.Duration(float64(current) * coef)
	if policy.MaximumInterval > 0 && next > policy.MaximumInterval {
		next = policy.MaximumInterval
	}
	return next
}
