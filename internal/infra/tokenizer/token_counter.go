package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/doc-summarizer/internal/core/summary"
)

// DefaultEncoding は gpt-4o 系で使われるエンコーディング
const DefaultEncoding = "o200k_base"

// TokenCounter はトークン数のカウントと切り詰めを提供する
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter は指定エンコーディングの TokenCounter を作成する
func NewTokenCounter(encodingName string) (*TokenCounter, error) {
	if encodingName == "" {
		encodingName = DefaultEncoding
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TokenCounter{
		encoding: encoding,
	}, nil
}

// CountTokens はテキストのトークン数をカウントする
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.encoding == nil {
		return EstimateTokens(text)
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

// Truncate はテキストを先頭から maxTokens トークンまでに切り詰める
func (tc *TokenCounter) Truncate(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return text, false
	}
	if tc.encoding == nil {
		return EstimateBudget{}.Truncate(text, maxTokens)
	}

	tokens := tc.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, false
	}
	return tc.encoding.Decode(tokens[:maxTokens]), true
}

// EstimateBudget はエンコーディングが利用できない環境向けの概算実装
type EstimateBudget struct{}

// Truncate は文字数ベースの推定でテキストを切り詰める
func (EstimateBudget) Truncate(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 || EstimateTokens(text) <= maxTokens {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:maxTokens*charsPerToken]), true
}

// charsPerToken は英語と日本語の平均的な値として3文字で1トークンとする
const charsPerToken = 3

// EstimateTokens はテキストの推定トークン数を返す
func EstimateTokens(text string) int {
	return len([]rune(text)) / charsPerToken
}

// インターフェース実装の確認
var (
	_ summary.TokenBudget = (*TokenCounter)(nil)
	_ summary.TokenBudget = EstimateBudget{}
)
