package httpapi

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID はリクエストIDを受け渡すヘッダ
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "requestID"

// RequestIDMiddleware はリクエストIDを採番し、レスポンスヘッダに設定する。
// 呼び出し元が X-Request-ID を指定した場合はそれを引き継ぐ。
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestID はコンテキストに設定されたリクエストIDを返す
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLogMiddleware はリクエストごとにアクセスログを出力する
func AccessLogMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"requestID", RequestID(c),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"clientIP", c.ClientIP(),
			"elapsedMs", time.Since(start).Milliseconds(),
		)
	}
}
