package potability

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy describes the bounded-retry behavior for prediction requests:
// how many attempts to make, how long to wait between them, and the
// per-attempt deadline. It is consumed by Do, independent of any specific
// network call.
type RetryPolicy struct {
	// MaxAttempts bounds the total number of attempts (minimum 1).
	MaxAttempts int
	// Delay returns the wait before the retry following the given 1-based
	// attempt. Nil means no delay.
	Delay func(attempt int) time.Duration
	// AttemptTimeout returns the deadline applied to the given 1-based
	// attempt. Nil leaves the parent context's deadline in charge.
	AttemptTimeout func(attempt int) time.Duration
}

// DefaultRetryPolicy retries up to three times, waits attempt-index seconds
// between attempts, and grows the per-attempt timeout by five seconds per
// retry to tolerate cold-start latency on the remote side.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    defaultMaxAttempts,
		Delay:          LinearDelay(time.Second),
		AttemptTimeout: GrowingTimeout(defaultBaseTimeout, 5*time.Second),
	}
}

// LinearDelay waits attempt × unit between attempts.
func LinearDelay(unit time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * unit
	}
}

// GrowingTimeout gives the first attempt the base deadline and adds step for
// every retry after it.
func GrowingTimeout(base, step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base + time.Duration(attempt-1)*step
	}
}

type transientErr struct {
	err error
}

func (t *transientErr) Error() string { return t.err.Error() }
func (t *transientErr) Unwrap() error { return t.err }

// Transient marks err as retryable under a RetryPolicy.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientErr{err: err}
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	var t *transientErr
	return errors.As(err, &t)
}

// Do runs op under the policy. op receives a context bounded by the
// per-attempt timeout and the 1-based attempt number. Do returns on the
// first success or the first non-transient error; transient errors are
// retried until attempts are exhausted, sleeping Delay(attempt) in between
// and honoring cancellation of the parent context.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if p.AttemptTimeout != nil {
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout(attempt))
		}
		err := op(attemptCtx, attempt)
		cancel()

		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		var delay time.Duration
		if p.Delay != nil {
			delay = p.Delay(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
