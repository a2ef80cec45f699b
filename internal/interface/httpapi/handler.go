package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jinford/doc-summarizer/internal/core/parsing"
	"github.com/jinford/doc-summarizer/internal/core/summary"
)

// MessageInternalError は想定外のエラー時に返す固定メッセージ
const MessageInternalError = "internal server error"

// Summarizer はアップロードされたドキュメントを要約する
type Summarizer interface {
	Summarize(ctx context.Context, payload parsing.UploadPayload) (summary.Envelope, error)
}

// uploadRequest は POST /upload のリクエストボディ
type uploadRequest struct {
	FileName string     `json:"fileName" binding:"required"`
	File     uploadFile `json:"File"`
}

type uploadFile struct {
	ContentType string `json:"$content-type"`
	Content     string `json:"$content" binding:"required"`
}

// Handler はアップロードAPIのハンドラ
type Handler struct {
	summarizer Summarizer
	logger     *slog.Logger
}

// NewHandler は新しい Handler を作成する
func NewHandler(summarizer Summarizer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		summarizer: summarizer,
		logger:     logger,
	}
}

// Upload はbase64エンコードされたドキュメントを受け取り、要約レスポンスを返す
func (h *Handler) Upload(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, summary.Failure("invalid request: "+err.Error()))
		return
	}

	payload, err := parsing.DecodeUploadPayload(req.FileName, req.File.Content, req.File.ContentType)
	if err != nil {
		c.JSON(http.StatusBadRequest, summary.Failure("invalid request: "+err.Error()))
		return
	}

	logger := h.logger.With("requestID", RequestID(c))
	logger.Info("upload received",
		"fileName", payload.FileName(),
		"contentType", payload.ContentType(),
		"size", payload.Size(),
	)

	// クライアント切断でパイプラインを中断しない
	ctx := context.WithoutCancel(c.Request.Context())

	envelope, err := h.summarizer.Summarize(ctx, payload)
	if err != nil {
		attrs := []any{"fileName", payload.FileName(), "error", err}
		var upstreamErr *parsing.UpstreamError
		if errors.As(err, &upstreamErr) {
			attrs = append(attrs, "upstreamStatus", upstreamErr.StatusCode)
		}
		logger.Error("summarize failed", attrs...)
		c.JSON(http.StatusInternalServerError, summary.Failure(MessageInternalError))
		return
	}

	c.JSON(http.StatusOK, envelope)
}

// Health はヘルスチェック
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
