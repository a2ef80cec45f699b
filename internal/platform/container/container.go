package container

import (
	"fmt"
	"log/slog"

	"github.com/jinford/doc-summarizer/internal/core/parsing"
	"github.com/jinford/doc-summarizer/internal/core/retry"
	"github.com/jinford/doc-summarizer/internal/core/summary"
	"github.com/jinford/doc-summarizer/internal/infra/llamaparse"
	"github.com/jinford/doc-summarizer/internal/infra/openai"
	"github.com/jinford/doc-summarizer/internal/infra/tokenizer"
	"github.com/jinford/doc-summarizer/internal/platform/config"
)

// ServiceContainer はアプリケーションの依存関係を保持する
type ServiceContainer struct {
	SummaryService *summary.SummaryService

	logger *slog.Logger
}

type containerOptions struct {
	logger        *slog.Logger
	clientFactory parsing.ClientFactory
	llmClient     summary.LLMClient
	tokenBudget   summary.TokenBudget
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerClientFactory は解析サービスクライアントの生成関数を差し替える
func WithContainerClientFactory(factory parsing.ClientFactory) ContainerOption {
	return func(opts *containerOptions) {
		opts.clientFactory = factory
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client summary.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// WithContainerTokenBudget はトークン切り詰め実装を差し替える
func WithContainerTokenBudget(budget summary.TokenBudget) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenBudget = budget
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// 解析サービスクライアント (リクエストごとに新しい接続プールを作る)
	clientFactory := options.clientFactory
	if clientFactory == nil {
		parseCfg := LlamaParseConfig(cfg)
		if err := parseCfg.Validate(); err != nil {
			return nil, fmt.Errorf("解析サービス設定が不正です: %w", err)
		}
		logger := options.logger
		clientFactory = func() (parsing.Client, error) {
			client, err := llamaparse.NewClient(parseCfg, llamaparse.WithLogger(logger))
			if err != nil {
				return nil, err
			}
			return client, nil
		}
	}

	// LLM クライアント (OpenAI)
	llmClient := options.llmClient
	if llmClient == nil {
		client, err := openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.OpenAI.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAIクライアントの初期化に失敗しました: %w", err)
		}
		llmClient = client
	}
	if cfg.OpenAI.MaxRequestsPerMinute > 0 {
		llmClient = summary.NewThrottledLLMClient(llmClient, cfg.OpenAI.MaxRequestsPerMinute)
	}

	// トークン切り詰め (tiktoken が使えない環境では概算にフォールバック)
	tokenBudget := options.tokenBudget
	if tokenBudget == nil && cfg.OpenAI.MaxInputTokens > 0 {
		counter, err := tokenizer.NewTokenCounter(cfg.OpenAI.TokenEncoding)
		if err != nil {
			options.logger.Warn("tiktoken encoding unavailable, falling back to estimate",
				"encoding", cfg.OpenAI.TokenEncoding,
				"error", err,
			)
			tokenBudget = tokenizer.EstimateBudget{}
		} else {
			tokenBudget = counter
		}
	}

	serviceOpts := []summary.SummaryServiceOption{
		summary.WithSummaryLogger(options.logger),
		summary.WithPollerOptions(
			parsing.WithPollInterval(cfg.Poll.Interval),
			parsing.WithPollTimeout(cfg.Poll.Timeout),
			parsing.WithPollLogger(options.logger),
		),
		summary.WithCompletionParams(cfg.OpenAI.Temperature, cfg.OpenAI.MaxTokens),
	}
	if tokenBudget != nil {
		serviceOpts = append(serviceOpts, summary.WithTokenBudget(tokenBudget, cfg.OpenAI.MaxInputTokens))
	}

	return &ServiceContainer{
		SummaryService: summary.NewSummaryService(clientFactory, llmClient, serviceOpts...),
		logger:         options.logger,
	}, nil
}

// LlamaParseConfig はアプリケーション設定から解析サービスクライアント設定を組み立てる
func LlamaParseConfig(cfg *config.Config) llamaparse.Config {
	parseCfg := llamaparse.DefaultConfig(cfg.LlamaParse.BaseURL, cfg.LlamaParse.APIKey)
	parseCfg.InsecureSkipVerify = cfg.LlamaParse.InsecureSkipVerify
	parseCfg.ConnectTimeout = cfg.LlamaParse.ConnectTimeout
	parseCfg.RequestTimeout = cfg.LlamaParse.RequestTimeout
	parseCfg.MaxConns = cfg.LlamaParse.MaxConns
	parseCfg.MaxIdleConns = cfg.LlamaParse.MaxIdleConns
	parseCfg.JobTimeoutSeconds = cfg.LlamaParse.JobTimeoutSeconds
	parseCfg.JobTimeoutExtraPerPageSeconds = cfg.LlamaParse.JobTimeoutExtraPerPageSeconds
	parseCfg.Retry = retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       cfg.Retry.Delay,
	}
	return parseCfg
}

// Logger はコンテナのロガーを返す
func (c *ServiceContainer) Logger() *slog.Logger {
	return c.logger
}

// Close はコンテナが保持するリソースを解放する。
// 解析サービスの接続はリクエストごとに閉じるため、ここで閉じるものはない。
func (c *ServiceContainer) Close() {}
