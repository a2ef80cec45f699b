package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxAttempts は1回の呼び出しあたりの最大試行回数
	DefaultMaxAttempts = 10

	// DefaultDelay は試行間の固定待機時間
	DefaultDelay = 2 * time.Second
)

// ErrInvalidPolicy は Policy の設定値が不正な場合のエラー
var ErrInvalidPolicy = errors.New("invalid retry policy")

// Policy は固定間隔・上限回数付きの再試行ポリシー
type Policy struct {
	// MaxAttempts は最初の呼び出しを含む試行回数の上限
	MaxAttempts int

	// Delay は失敗後、次の試行までの待機時間
	Delay time.Duration

	// Retryable は再試行対象のエラーかを判定する (nil の場合はすべて再試行)
	Retryable func(error) bool

	// OnRetry は再試行の直前に呼ばれる (ログ出力用)
	OnRetry func(attempt int, err error, wait time.Duration)

	// Timer は待機に使うタイマー (nil の場合は実時間)
	Timer backoff.Timer
}

// DefaultPolicy は 10 回 / 2 秒間隔のポリシーを返す
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
	}
}

// Validate はポリシーの値を検証する
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be >= 1, got %d", ErrInvalidPolicy, p.MaxAttempts)
	}
	if p.Delay < 0 {
		return fmt.Errorf("%w: delay must be >= 0, got %s", ErrInvalidPolicy, p.Delay)
	}
	return nil
}

// Permanent は再試行せずに即座に返すべきエラーとしてマークする
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do は op を Policy に従って実行し、最初の成功結果を返す。
// すべての試行が失敗した場合は最後の試行のエラーを返す。
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if err := p.Validate(); err != nil {
		var zero T
		return zero, err
	}

	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := op(ctx)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	var notify backoff.Notify
	if p.OnRetry != nil {
		notify = func(err error, wait time.Duration) {
			p.OnRetry(attempt, err, wait)
		}
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(p.MaxAttempts-1)),
		ctx,
	)
	return backoff.RetryNotifyWithTimerAndData(operation, b, notify, p.Timer)
}
