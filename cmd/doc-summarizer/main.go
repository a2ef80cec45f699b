package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/doc-summarizer/internal/interface/cli"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定 (設定読み込み後に差し替える)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "doc-summarizer",
		Usage: "ドキュメントを解析サービスでMarkdown化し、LLMで要約するHTTPサービス",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "HTTPサーバコマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバを起動",
						Flags: []cli.Flag{
							envFlag(),
							&cli.IntFlag{
								Name:  "port",
								Usage: "待ち受けポート (未指定時は SERVER_PORT)",
							},
						},
						Action: appcli.ServerStartAction,
					},
				},
			},
			{
				Name:  "summarize",
				Usage: "ローカルファイルを要約してレスポンスJSONを表示",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "要約するファイルのパス",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "content-type",
						Usage: "コンテンツタイプ (未指定時は自動判定)",
					},
				},
				Action: appcli.SummarizeAction,
			},
			{
				Name:  "job",
				Usage: "解析ジョブ操作コマンド",
				Commands: []*cli.Command{
					{
						Name:  "status",
						Usage: "ジョブのステータスを1回取得",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "id",
								Usage:    "ジョブID",
								Required: true,
							},
						},
						Action: appcli.JobStatusAction,
					},
					{
						Name:  "poll",
						Usage: "ジョブが終端状態になるまでポーリング",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "id",
								Usage:    "ジョブID",
								Required: true,
							},
						},
						Action: appcli.JobPollAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
