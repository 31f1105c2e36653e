package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var logged []int

	err := Do(context.Background(), fastConfig(5), "cms", func() error {
		calls++
		if calls < 3 {
			return errors.New("503")
		}
		return nil
	}, func(attempt int, err error, _ time.Duration) {
		logged = append(logged, attempt)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, logged)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	sentinel := errors.New("400 bad request")

	err := Do(context.Background(), fastConfig(5), "cms", func() error {
		calls++
		return Permanent(sentinel)
	}, nil)

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0

	err := Do(context.Background(), fastConfig(3), "cms", func() error {
		calls++
		return errors.New("timeout")
	}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
	assert.Equal(t, 3, calls)
}

func TestDo_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastConfig(3), "cms", func() error {
		t.Fatal("fn should not run")
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}
