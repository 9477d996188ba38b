package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:      3,
		InitialBackoff:   time.Millisecond,
		RateLimitBackoff: time.Millisecond,
	}
}

func alwaysRetry(error) Action { return Retry }

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	val, err := Do(context.Background(), fastPolicy(), alwaysRetry, func() (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	val, err := Do(context.Background(), fastPolicy(), alwaysRetry, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), alwaysRetry, func() (int, error) {
		calls++
		return 0, errors.New("still down")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestDo_StopIsPermanent(t *testing.T) {
	calls := 0
	classify := func(error) Action { return Stop }

	_, err := Do(context.Background(), fastPolicy(), classify, func() (int, error) {
		calls++
		return 0, errors.New("bad request")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var permanent *PermanentError
	assert.ErrorAs(t, err, &permanent)
	assert.Equal(t, "bad request", permanent.Error())
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	policy := fastPolicy()
	policy.InitialBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, policy, alwaysRetry, func() (int, error) {
		return 0, errors.New("transient")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	policy := fastPolicy()
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		attempts = append(attempts, attempt)
	}

	_, _ = Do(context.Background(), policy, alwaysRetry, func() (int, error) {
		return 0, errors.New("transient")
	})

	// the final attempt fails without a retry callback
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_RateLimitBackoff(t *testing.T) {
	policy := fastPolicy()
	policy.RateLimitBackoff = 5 * time.Millisecond

	var backoffs []time.Duration
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		backoffs = append(backoffs, backoff)
	}

	classify := func(error) Action { return After }
	_, _ = Do(context.Background(), policy, classify, func() (int, error) {
		return 0, errors.New("rate limited")
	})

	require.NotEmpty(t, backoffs)
	assert.Equal(t, 5*time.Millisecond, backoffs[0])
}
