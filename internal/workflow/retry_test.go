package workflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = RetryPolicy{
	MaximumAttempts:     3,
	StartToCloseTimeout: 200 * time.Millisecond,
	InitialInterval:     time.Millisecond,
	BackoffCoefficient:  2,
}

func TestExecuteActivityRetriesUntilSuccess(t *testing.T) {
	calls := 0
	out, err := ExecuteActivity(context.Background(), fastPolicy, "flaky", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
}

func TestExecuteActivityGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	cause := errors.New("upstream 503")
	_, err := ExecuteActivity(context.Background(), fastPolicy, "down", func(ctx context.Context) (int, error) {
		calls++
		return 0, cause
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, cause)

	var actErr *ActivityError
	require.ErrorAs(t, err, &actErr)
	assert.Equal(t, "down", actErr.Activity)
	assert.Equal(t, 3, actErr.Attempts)
}

func TestExecuteActivityStopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := ExecuteActivity(context.Background(), fastPolicy, "missing", func(ctx context.Context) (int, error) {
		calls++
		return 0, NonRetryable("prompt not found", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsNonRetryable(err))
}

func TestExecuteActivityEnforcesStartToCloseTimeout(t *testing.T) {
	policy := fastPolicy
	policy.MaximumAttempts = 2
	policy.StartToCloseTimeout = 20 * time.Millisecond

	var calls atomic.Int32
	_, err := ExecuteActivity(context.Background(), policy, "slow", func(ctx context.Context) (int, error) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
		return 1, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrActivityTimeout)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExecuteActivityHonoursParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := ExecuteActivity(ctx, fastPolicy, "cancelled", func(ctx context.Context) (int, error) {
		calls++
		return 1, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestNextInterval(t *testing.T) {
	p := RetryPolicy{BackoffCoefficient: 2, MaximumInterval: 3 * time.Second}
	assert.Equal(t, 2*time.Second, nextInterval(time.Second, p))
	assert.Equal(t, 3*time.Second, nextInterval(2*time.Second, p))

	p = RetryPolicy{BackoffCoefficient: 0}
	assert.Equal(t, time.Second, nextInterval(time.Second, p))
}

func TestDefaultActivityPolicy(t *testing.T) {
	assert.Equal(t, 3, DefaultActivityPolicy.MaximumAttempts)
	assert.Equal(t, 60*time.Second, DefaultActivityPolicy.StartToCloseTimeout)
}
