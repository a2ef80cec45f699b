package httpapi

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig はルータ構築時の設定
type RouterConfig struct {
	AllowedOrigins []string // 空の場合はCORSミドルウェアを登録しない
}

// NewRouter はアップロードAPIのルータを作成する
func NewRouter(summarizer Summarizer, logger *slog.Logger, cfg RouterConfig) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(AccessLogMiddleware(logger))

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST"},
			AllowHeaders:  []string{"Origin", "Content-Type", HeaderRequestID},
			ExposeHeaders: []string{HeaderRequestID},
			MaxAge:        12 * time.Hour,
		}))
	}

	h := NewHandler(summarizer, logger)
	r.GET("/health", h.Health)
	r.POST("/upload", h.Upload)

	return r
}
