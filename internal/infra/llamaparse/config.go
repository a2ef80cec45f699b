package llamaparse

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinford/doc-summarizer/internal/core/retry"
)

const (
	// DefaultConnectTimeout は接続確立のタイムアウト
	DefaultConnectTimeout = 5 * time.Second

	// DefaultMaxConns はホストあたりの最大接続数
	DefaultMaxConns = 100

	// DefaultMaxIdleConns は保持するKeep-Alive接続数
	DefaultMaxIdleConns = 20

	// DefaultJobTimeoutSeconds はリモートジョブのタイムアウト(秒)
	DefaultJobTimeoutSeconds = 1200

	// DefaultJobTimeoutExtraPerPageSeconds はページごとの追加タイムアウト(秒)
	DefaultJobTimeoutExtraPerPageSeconds = 1200
)

// ErrInvalidConfig は設定が不正な場合に返されます
var ErrInvalidConfig = errors.New("invalid llamaparse config")

// Config は解析サービスクライアントの設定
type Config struct {
	BaseURL string
	APIKey  string

	// InsecureSkipVerify はTLS証明書の検証を無効化する。
	// 既存の解析サービス環境との互換のため既定で true。
	InsecureSkipVerify bool

	ConnectTimeout time.Duration
	// RequestTimeout は0の場合、読み取りタイムアウトなし
	RequestTimeout time.Duration
	MaxConns       int
	MaxIdleConns   int

	JobTimeoutSeconds             int
	JobTimeoutExtraPerPageSeconds int

	Retry retry.Policy
}

// DefaultConfig は既定値を埋めた設定を返す
func DefaultConfig(baseURL, apiKey string) Config {
	return Config{
		BaseURL:                       baseURL,
		APIKey:                        apiKey,
		InsecureSkipVerify:            true,
		ConnectTimeout:                DefaultConnectTimeout,
		MaxConns:                      DefaultMaxConns,
		MaxIdleConns:                  DefaultMaxIdleConns,
		JobTimeoutSeconds:             DefaultJobTimeoutSeconds,
		JobTimeoutExtraPerPageSeconds: DefaultJobTimeoutExtraPerPageSeconds,
		Retry:                         retry.DefaultPolicy(),
	}
}

// Validate は必須項目と数値範囲を検証する
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, "BaseURL")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "APIKey")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	if c.MaxConns <= 0 || c.MaxIdleConns < 0 {
		return fmt.Errorf("%w: connection limits must be positive (max=%d, idle=%d)", ErrInvalidConfig, c.MaxConns, c.MaxIdleConns)
	}
	if c.ConnectTimeout < 0 || c.RequestTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
