package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/jinford/doc-summarizer/internal/interface/httpapi"
)

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cfg := appCtx.Config
	port := cfg.Server.Port
	if cmd.IsSet("port") {
		port = int(cmd.Int("port"))
	}

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(appCtx.Container.SummaryService, appCtx.Logger(), httpapi.RouterConfig{
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return runServer(ctx, srv, cfg.Server.ShutdownTimeout, appCtx)
}

// runServer はシグナル受信までサーバを動かし、受信後はグレースフルにシャットダウンする
func runServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, appCtx *AppContext) error {
	logger := appCtx.Logger()
	errCh := make(chan error, 1)

	go func() {
		logger.Info("HTTP server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("HTTPサーバの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server", "timeout", shutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバの停止に失敗: %w", err)
	}

	logger.Info("HTTP server stopped")
	return nil
}
