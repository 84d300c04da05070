package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinford/health-rag/cmd/health-rag/commands"
	"github.com/jinford/health-rag/internal/platform/logger"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger.New(logger.FromEnv())

	app := &cli.Command{
		Name:  "health-rag",
		Usage: "患者健康記録のセマンティック検索・インサイト生成基盤",
		Commands: []*cli.Command{
			{
				Name:  "search",
				Usage: "全レコード種別を横断してセマンティック検索",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:     "query",
						Usage:    "検索クエリ",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "patient",
						Usage: "患者ID（絞り込み）",
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "エンティティ種別（notes, medications, vitals, diet_logs, exercise_logs, document_chunks, insights）",
					},
					&cli.FloatFlag{
						Name:  "threshold",
						Usage: "類似度しきい値",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "最大件数",
					},
				},
				Action: commands.SearchAction,
			},
			{
				Name:  "chat",
				Usage: "チャットアシスタント",
				Commands: []*cli.Command{
					{
						Name:  "send",
						Usage: "メッセージを送信",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "user",
								Usage:    "ユーザID",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "patient",
								Usage: "対象患者ID",
							},
							&cli.StringFlag{
								Name:  "conversation",
								Usage: "会話ID（省略時は新規作成）",
							},
							&cli.StringFlag{
								Name:  "message",
								Usage: "メッセージ本文",
							},
						},
						Action: commands.ChatSendAction,
					},
					{
						Name:  "history",
						Usage: "会話履歴を表示",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "conversation",
								Usage:    "会話ID",
								Required: true,
							},
						},
						Action: commands.ChatHistoryAction,
					},
				},
			},
			{
				Name:  "insight",
				Usage: "インサイト管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "generate",
						Usage: "インサイトを1件生成",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "user",
								Usage:    "ユーザID",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "patient",
								Usage:    "患者ID",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "kind",
								Usage:    "種別（medication_adherence, health_trend, recommendation, alert, pattern_detection）",
								Required: true,
							},
						},
						Action: commands.InsightGenerateAction,
					},
					{
						Name:  "generate-all",
						Usage: "全アクティブユーザのインサイトを一括生成",
						Flags: []cli.Flag{
							envFlag(),
						},
						Action: commands.InsightGenerateAllAction,
					},
					{
						Name:  "list",
						Usage: "インサイト一覧を表示",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "user",
								Usage:    "ユーザID",
								Required: true,
							},
							&cli.BoolFlag{
								Name:  "all",
								Usage: "アーカイブ済みも表示",
							},
						},
						Action: commands.InsightListAction,
					},
					{
						Name:  "read",
						Usage: "インサイトを既読にする",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "id",
								Usage:    "インサイトID",
								Required: true,
							},
						},
						Action: commands.InsightReadAction,
					},
					{
						Name:  "archive",
						Usage: "インサイトをアーカイブする",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "id",
								Usage:    "インサイトID",
								Required: true,
							},
						},
						Action: commands.InsightArchiveAction,
					},
					{
						Name:  "cleanup",
						Usage: "期限切れのインサイトを削除",
						Flags: []cli.Flag{
							envFlag(),
						},
						Action: commands.InsightCleanupAction,
					},
				},
			},
			{
				Name:  "document",
				Usage: "ドキュメント管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "process",
						Usage: "ドキュメントを分割してEmbeddingを保存",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "document",
								Usage:    "ドキュメントID",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "owner",
								Usage:    "所有者（患者）ID",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "file",
								Usage:    "テキストファイルパス",
								Required: true,
							},
						},
						Action: commands.DocumentProcessAction,
					},
					{
						Name:  "ask",
						Usage: "単一ドキュメントに対して質問",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "document",
								Usage:    "ドキュメントID",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "question",
								Usage:    "質問文",
								Required: true,
							},
						},
						Action: commands.DocumentAskAction,
					},
				},
			},
			{
				Name:  "backfill",
				Usage: "Embedding未設定レコードの一括計算",
				Flags: []cli.Flag{
					envFlag(),
				},
				Action: commands.BackfillAction,
			},
			{
				Name:  "scheduler",
				Usage: "インサイト定期生成スケジューラを起動（停止シグナルまで常駐）",
				Flags: []cli.Flag{
					envFlag(),
				},
				Action: commands.SchedulerAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}
