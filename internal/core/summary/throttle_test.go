package summary

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedLLM struct {
	calls int
}

func (l *fixedLLM) GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	l.calls++
	return CompletionResponse{Content: "ok"}, nil
}

func TestRateLimiter_ConsumesAndRefills(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2)
	rl.now = func() time.Time { return clock }
	rl.lastRefill = clock

	ctx := context.Background()
	require.NoError(t, rl.Wait(ctx))
	rl.Release()
	require.NoError(t, rl.Wait(ctx))
	rl.Release()

	assert.Equal(t, 0, rl.Status().Available)

	clock = clock.Add(time.Minute)
	assert.Equal(t, 2, rl.Status().Available)
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	rl := NewRateLimiter(1)
	rl.retryWait = time.Millisecond
	require.NoError(t, rl.Wait(context.Background()))
	rl.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	status := rl.Status()
	assert.Zero(t, status.Waiting)
	assert.Zero(t, status.Active)
}

func TestThrottledLLMClient_Delegates(t *testing.T) {
	inner := &fixedLLM{}
	client := NewThrottledLLMClient(inner, 5)

	resp, err := client.GenerateCompletion(context.Background(), CompletionRequest{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 4, client.Status().Available)
	assert.Zero(t, client.Status().Active)
}
