package parsing

import "context"

// StatusReader はジョブのステータスを1回取得する
type StatusReader interface {
	GetStatus(ctx context.Context, jobID string) (StatusRecord, error)
}

// Client はドキュメント解析サービスとの通信インターフェース
type Client interface {
	StatusReader

	// Submit はファイルをアップロードして解析ジョブを登録する
	Submit(ctx context.Context, payload UploadPayload) (JobHandle, error)

	// FetchResult は完了したジョブのMarkdownを取得する
	FetchResult(ctx context.Context, jobID string) (string, error)

	// Close は保持している接続を解放する
	Close()
}

// ClientFactory はリクエストごとに新しい Client を生成する
type ClientFactory func() (Client, error)
