package llamaparse

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/doc-summarizer/internal/core/parsing"
	"github.com/jinford/doc-summarizer/internal/core/retry"
)

const (
	opSubmit      = "submit"
	opGetStatus   = "get_status"
	opFetchResult = "fetch_result"
)

// Client は LlamaParse 互換の解析サービスを呼び出すクライアント。
// 1リクエストにつき1インスタンスを生成し、使用後に Close する。
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	transport  *http.Transport
	logger     *slog.Logger
}

// ClientOption は Client のオプション設定
type ClientOption func(*Client)

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient は設定を検証して新しい Client を作成する
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxConnsPerHost:     cfg.MaxConns,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		ForceAttemptHTTP2:   true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // 設定で明示的に切り替える
		},
	}

	c := &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		transport: transport,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	if cfg.InsecureSkipVerify {
		c.logger.Warn("TLS certificate verification is disabled for the parsing service", "baseURL", c.baseURL)
	}

	return c, nil
}

// Submit はファイルを multipart でアップロードし、解析ジョブを登録する
func (c *Client) Submit(ctx context.Context, payload parsing.UploadPayload) (parsing.JobHandle, error) {
	return retry.Do(ctx, c.retryPolicy(opSubmit), func(ctx context.Context) (parsing.JobHandle, error) {
		return c.submitOnce(ctx, payload)
	})
}

// GetStatus はジョブのステータスを1回取得する
func (c *Client) GetStatus(ctx context.Context, jobID string) (parsing.StatusRecord, error) {
	return retry.Do(ctx, c.retryPolicy(opGetStatus), func(ctx context.Context) (parsing.StatusRecord, error) {
		return c.getStatusOnce(ctx, jobID)
	})
}

// FetchResult は解析結果のMarkdownを取得する
func (c *Client) FetchResult(ctx context.Context, jobID string) (string, error) {
	return retry.Do(ctx, c.retryPolicy(opFetchResult), func(ctx context.Context) (string, error) {
		return c.fetchResultOnce(ctx, jobID)
	})
}

// Close はアイドル接続を解放する
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

func (c *Client) submitOnce(ctx context.Context, payload parsing.UploadPayload) (parsing.JobHandle, error) {
	body, contentType, err := c.buildUploadForm(payload)
	if err != nil {
		return parsing.JobHandle{}, retry.Permanent(fmt.Errorf("build upload form: %w", err))
	}

	endpoint := c.baseURL + "/api/v1/parsing/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return parsing.JobHandle{}, retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)

	raw, err := c.do(req, opSubmit)
	if err != nil {
		return parsing.JobHandle{}, err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return parsing.JobHandle{}, &parsing.ProtocolError{Op: opSubmit, Body: string(raw), Err: err}
	}
	if strings.TrimSpace(resp.ID) == "" {
		return parsing.JobHandle{}, &parsing.ProtocolError{Op: opSubmit, Body: string(raw), Err: parsing.ErrMissingJobID}
	}

	c.logger.Info("parsing job submitted",
		"jobID", resp.ID,
		"fileName", payload.FileName(),
		"contentType", payload.ContentType(),
		"size", payload.Size(),
	)
	return parsing.JobHandle{ID: resp.ID}, nil
}

func (c *Client) getStatusOnce(ctx context.Context, jobID string) (parsing.StatusRecord, error) {
	endpoint := c.baseURL + "/api/v1/parsing/job/" + url.PathEscape(jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return parsing.StatusRecord{}, retry.Permanent(fmt.Errorf("build request: %w", err))
	}

	raw, err := c.do(req, opGetStatus)
	if err != nil {
		return parsing.StatusRecord{}, err
	}

	var resp struct {
		Status       string `json:"status"`
		Error        string `json:"error"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return parsing.StatusRecord{}, &parsing.ProtocolError{Op: opGetStatus, Body: string(raw), Err: err}
	}

	rec := parsing.StatusRecord{
		Status:    parsing.ParseJobStatus(resp.Status),
		RawStatus: resp.Status,
		Error:     mo.None[string](),
	}
	if msg := firstNonEmpty(resp.ErrorMessage, resp.Error); msg != "" {
		rec.Error = mo.Some(msg)
	}
	return rec, nil
}

func (c *Client) fetchResultOnce(ctx context.Context, jobID string) (string, error) {
	endpoint := c.baseURL + "/api/v1/parsing/job/" + url.PathEscape(jobID) + "/result/raw/markdown"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("build request: %w", err))
	}

	raw, err := c.do(req, opFetchResult)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// do は共通ヘッダを付与してリクエストを送信し、200 応答の本文を返す
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	c.logger.Debug("parsing request", "reqID", reqID, "op", op, "method", req.Method, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("parsing request failed",
			"reqID", reqID, "op", op, "error", err,
			"elapsedMs", time.Since(start).Milliseconds(),
		)
		return nil, &parsing.TransportError{Op: op, URL: req.URL.String(), Err: err}
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("parsing response body close error", "reqID", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &parsing.TransportError{Op: op, URL: req.URL.String(), Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("parsing response",
		"reqID", reqID, "op", op,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsedMs", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &parsing.UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func (c *Client) buildUploadForm(payload parsing.UploadPayload) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := []struct {
		name  string
		value int
	}{
		{"job_timeout_in_seconds", c.cfg.JobTimeoutSeconds},
		{"job_timeout_extra_time_per_page_in_seconds", c.cfg.JobTimeoutExtraPerPageSeconds},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, strconv.Itoa(f.value)); err != nil {
			return nil, "", err
		}
	}

	contentType := payload.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(payload.FileName())))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload.Content()); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func (c *Client) retryPolicy(op string) retry.Policy {
	p := c.cfg.Retry
	if p.Retryable == nil {
		p.Retryable = parsing.IsRetryable
	}
	if p.OnRetry == nil {
		p.OnRetry = func(attempt int, err error, wait time.Duration) {
			c.logger.Warn("retrying parsing call",
				"op", op,
				"attempt", attempt,
				"maxAttempts", p.MaxAttempts,
				"wait", wait.String(),
				"error", err,
			)
		}
	}
	return p
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// インターフェース実装の確認
var _ parsing.Client = (*Client)(nil)
