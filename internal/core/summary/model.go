package summary

import "context"

const (
	// CodeSuccess は処理成功を表すレスポンスコード
	CodeSuccess = 0

	// CodeFailure は処理失敗を表すレスポンスコード
	CodeFailure = 1

	// MessageParseFailed は解析ジョブが成功しなかった場合の固定メッセージ
	MessageParseFailed = "document parsing failed"
)

// Envelope はHTTP呼び出し元に返す統一レスポンス
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Success は要約を message に持つ成功レスポンスを返す
func Success(message string) Envelope {
	return Envelope{Code: CodeSuccess, Message: message, Data: nil}
}

// Failure は失敗レスポンスを返す
func Failure(message string) Envelope {
	return Envelope{Code: CodeFailure, Message: message, Data: nil}
}

// LLMClient はLLMサービスとのやり取りを抽象化する
type LLMClient interface {
	// GenerateCompletion はプロンプトに基づいてLLMから応答を生成する
	GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// CompletionRequest はLLMへのリクエストパラメータ
type CompletionRequest struct {
	// Prompt はユーザーメッセージとして送信するプロンプト
	Prompt string

	// Temperature は生成の多様性 (0 の場合はプロバイダの既定値)
	Temperature float64

	// MaxTokens は生成する最大トークン数 (0 の場合は指定しない)
	MaxTokens int

	// Model はLLMモデル名 (省略時はクライアントの既定モデル)
	Model string
}

// CompletionResponse はLLMからのレスポンス
type CompletionResponse struct {
	Content    string
	TokensUsed int
	Model      string
}

// TokenBudget はプロンプトに含めるテキストをトークン数で切り詰める
type TokenBudget interface {
	Truncate(text string, maxTokens int) (string, bool)
}
