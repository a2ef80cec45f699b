package summary

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter は1分あたりの呼び出し回数と同時実行数を制限する
type RateLimiter struct {
	mu sync.Mutex

	// maxPerMinute は1分あたりの最大リクエスト数
	maxPerMinute int

	// tokens はトークンバケット
	tokens int

	// lastRefill は最後にトークンを補充した時刻
	lastRefill time.Time

	// waiting は待機中のリクエスト数
	waiting int

	// semaphore は並列実行を制御するセマフォ
	semaphore chan struct{}

	now       func() time.Time
	retryWait time.Duration
}

// NewRateLimiter は新しい RateLimiter を作成する
func NewRateLimiter(maxPerMinute int) *RateLimiter {
	return &RateLimiter{
		maxPerMinute: maxPerMinute,
		tokens:       maxPerMinute,
		lastRefill:   time.Now(),
		semaphore:    make(chan struct{}, maxPerMinute),
		now:          time.Now,
		retryWait:    time.Second,
	}
}

// Wait は実行権限を取得するまで待機する。
// 取得できた場合は必ず Release を呼ぶこと。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	select {
	case rl.semaphore <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	rl.mu.Lock()
	for {
		rl.refill()
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}

		rl.waiting++
		rl.mu.Unlock()

		timer := time.NewTimer(rl.retryWait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			rl.mu.Lock()
			rl.waiting--
			rl.mu.Unlock()
			<-rl.semaphore
			return ctx.Err()
		}

		rl.mu.Lock()
		rl.waiting--
	}
}

// Release は実行権限を解放する
func (rl *RateLimiter) Release() {
	<-rl.semaphore
}

// refill は経過分数に応じてトークンを補充する。呼び出し側でロックを取得していること。
func (rl *RateLimiter) refill() {
	elapsed := rl.now().Sub(rl.lastRefill)
	if elapsed < time.Minute {
		return
	}

	minutes := int(elapsed / time.Minute)
	rl.tokens = min(rl.tokens+minutes*rl.maxPerMinute, rl.maxPerMinute)
	rl.lastRefill = rl.lastRefill.Add(time.Duration(minutes) * time.Minute)
}

// Status は現在の状態を返す
func (rl *RateLimiter) Status() RateLimiterStatus {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	return RateLimiterStatus{
		MaxPerMinute: rl.maxPerMinute,
		Available:    rl.tokens,
		Waiting:      rl.waiting,
		Active:       len(rl.semaphore),
	}
}

// RateLimiterStatus はレート制限の状態
type RateLimiterStatus struct {
	MaxPerMinute int
	Available    int
	Waiting      int
	Active       int
}

func (s RateLimiterStatus) String() string {
	return fmt.Sprintf("max=%d/min available=%d waiting=%d active=%d",
		s.MaxPerMinute, s.Available, s.Waiting, s.Active)
}

// ThrottledLLMClient はレート制限付きの LLMClient
type ThrottledLLMClient struct {
	client  LLMClient
	limiter *RateLimiter
}

// NewThrottledLLMClient は LLMClient をレート制限でラップする
func NewThrottledLLMClient(client LLMClient, maxPerMinute int) *ThrottledLLMClient {
	return &ThrottledLLMClient{
		client:  client,
		limiter: NewRateLimiter(maxPerMinute),
	}
}

// GenerateCompletion はレート制限に従って LLM を呼び出す
func (tc *ThrottledLLMClient) GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := tc.limiter.Wait(ctx); err != nil {
		return CompletionResponse{}, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	defer tc.limiter.Release()

	return tc.client.GenerateCompletion(ctx, req)
}

// Status はレート制限の状態を返す
func (tc *ThrottledLLMClient) Status() RateLimiterStatus {
	return tc.limiter.Status()
}

var _ LLMClient = (*ThrottledLLMClient)(nil)
