package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_Success(t *testing.T) {
	cfg := Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	called := 0
	err := Do(context.Background(), cfg, func() error {
		called++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, called, "should succeed on first attempt")
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	cfg := Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Millisecond,
	}

	called := 0
	err := Do(context.Background(), cfg, func() error {
		called++
		if called < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, called, "should succeed on third attempt")
}

func TestDo_ExhaustedRetries(t *testing.T) {
	cfg := Config{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Millisecond,
	}

	called := 0
	testErr := errors.New("persistent error")
	err := Do(context.Background(), cfg, func() error {
		called++
		return testErr
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 3, called, "should attempt MaxRetries times")
	assert.ErrorIs(t, err, testErr)
	assert.Contains(t, err.Error(), "failed after 3 retries")
}

func TestDo_NonRetryableError(t *testing.T) {
	cfg := Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Millisecond,
	}

	fatal := errors.New("fatal")
	called := 0
	err := Do(context.Background(), cfg, func() error {
		called++
		return fatal
	}, func(err error) bool {
		return !errors.Is(err, fatal)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, called, "non-retryable error should stop immediately")
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	cfg := Config{
		MaxRetries:     10,
		InitialBackoff: 100 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	called := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func() error {
		called++
		return errors.New("boom")
	}, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, called)
}

func TestPoll_TrueOnFirstCheck(t *testing.T) {
	start := time.Now()
	ok := Poll(context.Background(), 10, 500*time.Millisecond, func() bool {
		return true
	})

	require.True(t, ok)
	assert.Less(t, time.Since(start), 100*time.Millisecond,
		"immediate success should not sleep")
}

func TestPoll_TrueAfterSomeChecks(t *testing.T) {
	checks := 0
	ok := Poll(context.Background(), 10, 1*time.Millisecond, func() bool {
		checks++
		return checks == 4
	})

	require.True(t, ok)
	assert.Equal(t, 4, checks)
}

func TestPoll_ExhaustsBudget(t *testing.T) {
	checks := 0
	ok := Poll(context.Background(), 5, 1*time.Millisecond, func() bool {
		checks++
		return false
	})

	require.False(t, ok)
	assert.Equal(t, 5, checks, "should check exactly maxAttempts times")
}

func TestPoll_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checks := 0
	ok := Poll(ctx, 10, 50*time.Millisecond, func() bool {
		checks++
		return false
	})

	require.False(t, ok)
	assert.Equal(t, 1, checks, "canceled context should stop after the in-flight check")
}
