package parsing

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyContent はアップロード内容が空の場合に返されます
	ErrEmptyContent = errors.New("empty content")

	// ErrEmptyFileName はファイル名が空の場合に返されます
	ErrEmptyFileName = errors.New("empty file name")

	// ErrInvalidEncoding は base64 のデコードに失敗した場合に返されます
	ErrInvalidEncoding = errors.New("invalid base64 content")

	// ErrMissingJobID は submit 応答にジョブIDが含まれない場合に返されます
	ErrMissingJobID = errors.New("missing job id")
)

// TransportError は接続レベルの失敗を表します
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("parsing: %s: transport error (url=%s): %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError はリモートサービスが成功以外のHTTPステータスを返したことを表します
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("parsing: %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// ProtocolError は応答本文が期待した形式で解釈できないことを表します
type ProtocolError struct {
	Op   string
	Body string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("parsing: %s: malformed response: %v (body=%q)", e.Op, e.Err, e.Body)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsRetryable は再試行で回復しうるエラーかを判定します。
// 接続エラーと上流エラーは再試行し、プロトコルエラーは即座に中断します。
func IsRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return true
	}
	return false
}
