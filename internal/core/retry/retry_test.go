package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimer は待機せずに即座に発火し、要求された待機時間を記録する
type fakeTimer struct {
	waits []time.Duration
	ch    chan time.Time
}

func (t *fakeTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.ch = make(chan time.Time, 1)
	t.ch <- time.Time{}
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time {
	return t.ch
}

func testPolicy(timer *fakeTimer) Policy {
	p := DefaultPolicy()
	p.Timer = timer
	return p
}

func TestDo_ReturnsFirstSuccessWithoutFurtherAttempts(t *testing.T) {
	for succeedOn := 1; succeedOn <= DefaultMaxAttempts; succeedOn++ {
		t.Run(fmt.Sprintf("succeed_on_%d", succeedOn), func(t *testing.T) {
			timer := &fakeTimer{}
			calls := 0

			got, err := Do(context.Background(), testPolicy(timer), func(ctx context.Context) (string, error) {
				calls++
				if calls < succeedOn {
					return "", fmt.Errorf("attempt %d failed", calls)
				}
				return "ok", nil
			})

			require.NoError(t, err)
			assert.Equal(t, "ok", got)
			assert.Equal(t, succeedOn, calls)
			assert.Len(t, timer.waits, succeedOn-1)
		})
	}
}

func TestDo_PropagatesLastErrorAfterMaxAttempts(t *testing.T) {
	timer := &fakeTimer{}
	calls := 0
	var lastErr error

	_, err := Do(context.Background(), testPolicy(timer), func(ctx context.Context) (int, error) {
		calls++
		lastErr = fmt.Errorf("attempt %d failed", calls)
		return 0, lastErr
	})

	require.Error(t, err)
	assert.Equal(t, DefaultMaxAttempts, calls)
	assert.Same(t, lastErr, err)
	assert.EqualError(t, err, "attempt 10 failed")
}

func TestDo_WaitsFixedDelayBetweenAttempts(t *testing.T) {
	timer := &fakeTimer{}

	_, err := Do(context.Background(), testPolicy(timer), func(ctx context.Context) (int, error) {
		return 0, errors.New("boom")
	})

	require.Error(t, err)
	require.Len(t, timer.waits, DefaultMaxAttempts-1)
	for _, w := range timer.waits {
		assert.Equal(t, DefaultDelay, w)
	}
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	timer := &fakeTimer{}
	sentinel := errors.New("bad payload")
	calls := 0

	_, err := Do(context.Background(), testPolicy(timer), func(ctx context.Context) (int, error) {
		calls++
		return 0, Permanent(sentinel)
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
	assert.Empty(t, timer.waits)
}

func TestDo_RetryableClassifier(t *testing.T) {
	timer := &fakeTimer{}
	fatal := errors.New("fatal")
	calls := 0

	p := testPolicy(timer)
	p.Retryable = func(err error) bool { return !errors.Is(err, fatal) }

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		if calls == 3 {
			return 0, fatal
		}
		return 0, errors.New("transient")
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 3, calls)
}

func TestDo_OnRetryReportsAttempt(t *testing.T) {
	timer := &fakeTimer{}
	var attempts []int

	p := testPolicy(timer)
	p.MaxAttempts = 3
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		attempts = append(attempts, attempt)
	}

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 0, errors.New("nope")
	})

	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_InvalidPolicy(t *testing.T) {
	_, err := Do(context.Background(), Policy{MaxAttempts: 0}, func(ctx context.Context) (int, error) {
		t.Fatal("operation must not run")
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}
