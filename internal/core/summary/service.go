package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/mo"

	"github.com/jinford/doc-summarizer/internal/core/parsing"
)

// ErrEmptyCompletion はLLMが空の応答を返した場合のエラー
var ErrEmptyCompletion = errors.New("empty completion")

// SummaryService はアップロード → ポーリング → 取得 → 要約 の一連の処理を提供する
type SummaryService struct {
	newClient      parsing.ClientFactory
	llm            LLMClient
	detector       *parsing.ContentTypeDetector
	budget         TokenBudget
	maxInputTokens int
	pollerOptions  []parsing.PollerOption
	temperature    float64
	maxTokens      int
	logger         *slog.Logger
}

// SummaryServiceOption は SummaryService のオプション設定
type SummaryServiceOption func(*SummaryService)

// WithSummaryLogger は SummaryService にロガーを設定する
func WithSummaryLogger(logger *slog.Logger) SummaryServiceOption {
	return func(s *SummaryService) {
		s.logger = logger
	}
}

// WithPollerOptions はポーリング設定を上書きする
func WithPollerOptions(opts ...parsing.PollerOption) SummaryServiceOption {
	return func(s *SummaryService) {
		s.pollerOptions = append(s.pollerOptions, opts...)
	}
}

// WithTokenBudget はLLMに渡すMarkdownの上限トークン数を設定する (0 以下で無制限)
func WithTokenBudget(budget TokenBudget, maxInputTokens int) SummaryServiceOption {
	return func(s *SummaryService) {
		s.budget = budget
		s.maxInputTokens = maxInputTokens
	}
}

// WithCompletionParams は要約生成時のパラメータを設定する
func WithCompletionParams(temperature float64, maxTokens int) SummaryServiceOption {
	return func(s *SummaryService) {
		s.temperature = temperature
		s.maxTokens = maxTokens
	}
}

// NewSummaryService は新しい SummaryService を作成する
func NewSummaryService(newClient parsing.ClientFactory, llm LLMClient, opts ...SummaryServiceOption) *SummaryService {
	svc := &SummaryService{
		newClient: newClient,
		llm:       llm,
		detector:  parsing.NewContentTypeDetector(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// Summarize はドキュメントを解析サービスに登録し、完了後のMarkdownを要約する。
// 解析ジョブが成功しなかった場合は失敗レスポンスを返し、取得・要約は行わない。
// 各段階のエラーはそのまま呼び出し元に返す。
func (s *SummaryService) Summarize(ctx context.Context, payload parsing.UploadPayload) (Envelope, error) {
	start := time.Now()
	payload = s.detector.Resolve(payload)

	client, err := s.newClient()
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to create parsing client: %w", err)
	}
	defer client.Close()

	// 1. アップロード
	handle, err := client.Submit(ctx, payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to submit document: %w", err)
	}
	job := parsing.NewJob(handle)

	s.logger.Info("document submitted",
		"jobID", job.ID,
		"fileName", payload.FileName(),
		"contentType", payload.ContentType(),
	)

	// 2. 終端状態までポーリング
	outcome, err := s.poller(client).Poll(ctx, job)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to poll job: %w", err)
	}
	if !outcome.Succeeded() {
		s.logger.Warn("document parsing did not succeed",
			"jobID", job.ID,
			"outcome", outcome.Kind.String(),
			"detail", outcome.Detail,
			"polls", outcome.Polls,
		)
		return Failure(MessageParseFailed), nil
	}

	// 3. Markdown取得
	markdown, err := client.FetchResult(ctx, job.ID)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to fetch markdown: %w", err)
	}
	job.Result = mo.Some(markdown)

	// 4. 要約生成
	summary, err := s.summarizeMarkdown(ctx, payload.FileName(), markdown)
	if err != nil {
		return Envelope{}, err
	}

	s.logger.Info("summary generated",
		"jobID", job.ID,
		"markdownLength", len(markdown),
		"summaryLength", len(summary),
		"elapsedMs", time.Since(start).Milliseconds(),
	)

	return Success(summary), nil
}

// WatchJob は既存のジョブIDを終端状態までポーリングする
func (s *SummaryService) WatchJob(ctx context.Context, jobID string) (parsing.PollOutcome, error) {
	client, err := s.newClient()
	if err != nil {
		return parsing.PollOutcome{}, fmt.Errorf("failed to create parsing client: %w", err)
	}
	defer client.Close()

	return s.poller(client).Poll(ctx, parsing.NewJob(parsing.JobHandle{ID: jobID}))
}

// JobStatus は既存ジョブのステータスを1回取得する
func (s *SummaryService) JobStatus(ctx context.Context, jobID string) (parsing.StatusRecord, error) {
	client, err := s.newClient()
	if err != nil {
		return parsing.StatusRecord{}, fmt.Errorf("failed to create parsing client: %w", err)
	}
	defer client.Close()

	return client.GetStatus(ctx, jobID)
}

func (s *SummaryService) summarizeMarkdown(ctx context.Context, fileName, markdown string) (string, error) {
	truncated := false
	if s.budget != nil && s.maxInputTokens > 0 {
		markdown, truncated = s.budget.Truncate(markdown, s.maxInputTokens)
		if truncated {
			s.logger.Warn("markdown truncated to token budget", "maxInputTokens", s.maxInputTokens)
		}
	}

	resp, err := s.llm.GenerateCompletion(ctx, CompletionRequest{
		Prompt:      BuildSummaryPrompt(fileName, markdown, truncated),
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	if resp.Content == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Content, nil
}

func (s *SummaryService) poller(reader parsing.StatusReader) *parsing.Poller {
	opts := append([]parsing.PollerOption{parsing.WithPollLogger(s.logger)}, s.pollerOptions...)
	return parsing.NewPoller(reader, opts...)
}
