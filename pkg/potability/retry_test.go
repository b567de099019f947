package potability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_StopsOnSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	policy := fastPolicy(5)
	err := policy.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return Transient(errors.New("flaky"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_StopsOnNonTransient(t *testing.T) {
	t.Parallel()

	calls := 0
	fatal := errors.New("bad request")
	policy := fastPolicy(5)
	err := policy.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	policy := fastPolicy(3)
	err := policy.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return Transient(errors.New("still down"))
	})

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_AttemptTimeoutGrows(t *testing.T) {
	t.Parallel()

	var deadlines []time.Duration
	start := time.Now()
	policy := RetryPolicy{
		MaxAttempts:    3,
		Delay:          func(int) time.Duration { return 0 },
		AttemptTimeout: GrowingTimeout(10*time.Second, 5*time.Second),
	}
	_ = policy.Do(context.Background(), func(ctx context.Context, attempt int) error {
		dl, ok := ctx.Deadline()
		require.True(t, ok)
		deadlines = append(deadlines, dl.Sub(start))
		return Transient(errors.New("down"))
	})

	require.Len(t, deadlines, 3)
	assert.InDelta(t, float64(10*time.Second), float64(deadlines[0]), float64(time.Second))
	assert.InDelta(t, float64(15*time.Second), float64(deadlines[1]), float64(time.Second))
	assert.InDelta(t, float64(20*time.Second), float64(deadlines[2]), float64(time.Second))
}

func TestRetryPolicy_HonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := RetryPolicy{
		MaxAttempts: 3,
		Delay:       func(int) time.Duration { return time.Hour },
	}
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return Transient(errors.New("down"))
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestLinearDelay(t *testing.T) {
	t.Parallel()

	delay := LinearDelay(time.Second)
	assert.Equal(t, time.Second, delay(1))
	assert.Equal(t, 2*time.Second, delay(2))
	assert.Equal(t, 3*time.Second, delay(3))
}

func TestTransient_NilPassthrough(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Transient(nil))
	assert.False(t, IsTransient(nil))
}
