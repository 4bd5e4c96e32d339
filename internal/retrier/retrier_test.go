package retrier

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goflare.io/cinder/internal/config"
)

type tempErr struct{ temporary bool }

func (e tempErr) Error() string   { return fmt.Sprintf("temporary=%v", e.temporary) }
func (e tempErr) Temporary() bool { return e.temporary }

func testConfig() config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
		Factor:      2,
		Jitter:      0,
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.RetryConfig)
		want   error
	}{
		{"attempts", func(c *config.RetryConfig) { c.MaxAttempts = -1 }, ErrInvalidMaxAttempts},
		{"base delay", func(c *config.RetryConfig) { c.BaseDelay = time.Microsecond }, ErrInvalidBaseDelay},
		{"factor", func(c *config.RetryConfig) { c.Factor = 0.5 }, ErrInvalidFactor},
		{"negative jitter", func(c *config.RetryConfig) { c.Jitter = -0.1 }, ErrInvalidJitter},
		{"large jitter", func(c *config.RetryConfig) { c.Jitter = 1.5 }, ErrInvalidJitter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			r, err := New(cfg)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRun_SucceedsAfterTemporaryErrors(t *testing.T) {
	r, err := New(testConfig())
	require.NoError(t, err)

	var retries []int
	r.OnRetry = func(attempt int, err error, delay time.Duration) {
		retries = append(retries, attempt)
	}

	calls := 0
	err = r.Run(context.Background(), func() error {
		calls++
		if calls < 3 {
			return tempErr{temporary: true}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestRun_StopsOnPermanentError(t *testing.T) {
	r, err := New(testConfig())
	require.NoError(t, err)

	permanent := errors.New("listener closed")
	calls := 0
	err = r.Run(context.Background(), func() error {
		calls++
		return permanent
	})

	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestRun_WrapsLastErrorWhenExhausted(t *testing.T) {
	r, err := New(testConfig())
	require.NoError(t, err)

	calls := 0
	err = r.Run(context.Background(), func() error {
		calls++
		return fmt.Errorf("accept: %w", tempErr{temporary: true})
	})

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrMaxAttempts)
	var temp tempErr
	assert.ErrorAs(t, err, &temp)
}

func TestRun_ZeroMaxAttemptsRetriesUntilSuccess(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 0
	r, err := New(cfg)
	require.NoError(t, err)

	var delays []time.Duration
	r.OnRetry = func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	}

	calls := 0
	err = r.Run(context.Background(), func() error {
		calls++
		if calls <= 20 {
			return tempErr{temporary: true}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 21, calls)
	require.Len(t, delays, 20)
	for _, d := range delays[2:] {
		assert.Equal(t, 4*time.Millisecond, d, "backoff stays at the max delay")
	}
}

func TestRun_ZeroMaxAttemptsStopsOnPermanentError(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 0
	r, err := New(cfg)
	require.NoError(t, err)

	permanent := errors.New("listener closed")
	calls := 0
	err = r.Run(context.Background(), func() error {
		calls++
		if calls < 10 {
			return tempErr{temporary: true}
		}
		return permanent
	})

	assert.Same(t, permanent, err)
	assert.NotErrorIs(t, err, ErrMaxAttempts)
	assert.Equal(t, 10, calls)
}

func TestRun_ContextCancelledDuringBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.BaseDelay = time.Hour
	cfg.MaxDelay = time.Hour
	r, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r.OnRetry = func(int, error, time.Duration) { cancel() }

	err = r.Run(ctx, func() error { return tempErr{temporary: true} })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_CustomTempErrorFunc(t *testing.T) {
	retryable := errors.New("try again")
	r, err := New(testConfig(), WithTempErrorFunc(func(err error) bool {
		return errors.Is(err, retryable)
	}))
	require.NoError(t, err)

	calls := 0
	err = r.Run(context.Background(), func() error {
		calls++
		return retryable
	})
	assert.ErrorIs(t, err, ErrMaxAttempts)
	assert.Equal(t, 3, calls)
}

func TestDelay(t *testing.T) {
	r, err := New(testConfig())
	require.NoError(t, err)

	assert.Equal(t, time.Millisecond, r.Delay(0))
	assert.Equal(t, 2*time.Millisecond, r.Delay(1))
	assert.Equal(t, 4*time.Millisecond, r.Delay(2))
	assert.Equal(t, 4*time.Millisecond, r.Delay(10), "capped at max delay")
}

func TestDelay_Jitter(t *testing.T) {
	cfg := testConfig()
	cfg.Jitter = 0.5
	r, err := New(cfg)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		d := r.Delay(1)
		assert.GreaterOrEqual(t, d, 2*time.Millisecond)
		assert.LessOrEqual(t, d, 3*time.Millisecond)
	}
}

func TestIsTemporary(t *testing.T) {
	assert.True(t, IsTemporary(tempErr{temporary: true}))
	assert.True(t, IsTemporary(fmt.Errorf("wrapped: %w", tempErr{temporary: true})))
	assert.False(t, IsTemporary(tempErr{temporary: false}))
	assert.False(t, IsTemporary(errors.New("plain")))
	assert.False(t, IsTemporary(nil))
}
