package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/jinford/doc-summarizer/internal/core/parsing"
	"github.com/jinford/doc-summarizer/internal/core/summary"
)

// SummarizeAction はローカルファイルを要約するコマンドのアクション
func SummarizeAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	return summarizeFile(ctx, appCtx.Container.SummaryService, cmd.String("file"), cmd.String("content-type"))
}

type fileSummarizer interface {
	Summarize(ctx context.Context, payload parsing.UploadPayload) (summary.Envelope, error)
}

func summarizeFile(ctx context.Context, svc fileSummarizer, path, contentType string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}

	payload, err := parsing.NewUploadPayload(filepath.Base(path), content, contentType)
	if err != nil {
		return fmt.Errorf("アップロード内容が不正です: %w", err)
	}

	envelope, err := svc.Summarize(ctx, payload)
	if err != nil {
		return fmt.Errorf("要約に失敗: %w", err)
	}

	return printJSON(envelope)
}
