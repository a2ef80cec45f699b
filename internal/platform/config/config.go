package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingConfig は必須の設定値が不足している場合のエラー
var ErrMissingConfig = errors.New("missing required configuration")

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// HTTPサーバ設定
	Server ServerConfig

	// ドキュメント解析サービス設定
	LlamaParse LlamaParseConfig

	// 解析サービス呼び出しの再試行設定
	Retry RetryConfig

	// ジョブポーリング設定
	Poll PollConfig

	// 要約生成用LLM設定
	OpenAI OpenAIConfig

	// ログ設定
	Log LogConfig
}

// ServerConfig はHTTPサーバ設定
type ServerConfig struct {
	Port               int
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
}

// LlamaParseConfig は解析サービスの接続設定
type LlamaParseConfig struct {
	BaseURL                       string
	APIKey                        string
	InsecureSkipVerify            bool // TLS証明書の検証を無効化 (既定: true)
	ConnectTimeout                time.Duration
	RequestTimeout                time.Duration // 0 の場合は読み取りタイムアウトなし
	MaxConns                      int
	MaxIdleConns                  int
	JobTimeoutSeconds             int
	JobTimeoutExtraPerPageSeconds int
}

// RetryConfig は再試行設定
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// PollConfig はポーリング設定
type PollConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
	MaxInputTokens int // 要約対象Markdownの上限トークン数 (0 で無制限)
	TokenEncoding  string

	// MaxRequestsPerMinute は要約呼び出しの1分あたり上限 (0 で無制限)
	MaxRequestsPerMinute int
}

// LogConfig はログ設定
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load は環境変数または.envファイルから設定を読み込み、必須項目を検証します
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		},
		LlamaParse: LlamaParseConfig{
			BaseURL:                       getEnv("LLAMA_PARSE_BASE_URL", ""),
			APIKey:                        getEnv("LLAMA_PARSE_API_KEY", ""),
			InsecureSkipVerify:            getEnvAsBool("LLAMA_PARSE_INSECURE_SKIP_VERIFY", true),
			ConnectTimeout:                getEnvAsDuration("LLAMA_PARSE_CONNECT_TIMEOUT", 5*time.Second),
			RequestTimeout:                getEnvAsDuration("LLAMA_PARSE_REQUEST_TIMEOUT", 0),
			MaxConns:                      getEnvAsInt("LLAMA_PARSE_MAX_CONNS", 100),
			MaxIdleConns:                  getEnvAsInt("LLAMA_PARSE_MAX_IDLE_CONNS", 20),
			JobTimeoutSeconds:             getEnvAsInt("LLAMA_PARSE_JOB_TIMEOUT_SECONDS", 1200),
			JobTimeoutExtraPerPageSeconds: getEnvAsInt("LLAMA_PARSE_JOB_TIMEOUT_EXTRA_PER_PAGE_SECONDS", 1200),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvAsInt("RETRY_MAX_ATTEMPTS", 10),
			Delay:       getEnvAsDuration("RETRY_DELAY", 2*time.Second),
		},
		Poll: PollConfig{
			Interval: getEnvAsDuration("POLL_INTERVAL", 5*time.Second),
			Timeout:  getEnvAsDuration("POLL_TIMEOUT", 600*time.Second),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-2024-11-20"),
			Temperature:    getEnvAsFloat("OPENAI_TEMPERATURE", 0),
			MaxTokens:      getEnvAsInt("OPENAI_MAX_TOKENS", 0),
			Timeout:        getEnvAsDuration("OPENAI_TIMEOUT", 120*time.Second),
			MaxInputTokens: getEnvAsInt("SUMMARY_MAX_INPUT_TOKENS", 100000),
			TokenEncoding:  getEnv("SUMMARY_TOKEN_ENCODING", "o200k_base"),

			MaxRequestsPerMinute: getEnvAsInt("OPENAI_MAX_REQUESTS_PER_MINUTE", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate は必須項目が揃っているかを検証します
func (c *Config) Validate() error {
	var missing []string
	if c.LlamaParse.BaseURL == "" {
		missing = append(missing, "LLAMA_PARSE_BASE_URL")
	}
	if c.LlamaParse.APIKey == "" {
		missing = append(missing, "LLAMA_PARSE_API_KEY")
	}
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Poll.Interval <= 0 || c.Poll.Timeout <= 0 {
		return fmt.Errorf("POLL_INTERVAL and POLL_TIMEOUT must be positive")
	}
	return nil
}

// SlogLevel はログレベル文字列を slog.Level に変換します
func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList はカンマ区切りの環境変数をスライスとして取得します
func getEnvAsList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
