package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jinford/health-rag/internal/module/insight/application"
	"github.com/jinford/health-rag/internal/module/insight/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

// InsightGenerateAction はインサイトを1件生成するコマンドのアクション
func InsightGenerateAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	userStr := cmd.String("user")
	patientStr := cmd.String("patient")
	kindStr := cmd.String("kind")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	userID, err := parseRequiredUUID(userStr, "--user")
	if err != nil {
		return err
	}
	patientID, err := parseRequiredUUID(patientStr, "--patient")
	if err != nil {
		return err
	}

	insight, err := appCtx.Container.Generator.Generate(ctx, application.GenerateParams{
		Kind:      domain.InsightKind(kindStr),
		UserID:    userID,
		PatientID: patientID,
	})
	if errors.Is(err, domain.ErrNoInsight) {
		fmt.Println("対象データがないためインサイトは生成されませんでした")
		return nil
	}
	if err != nil {
		return fmt.Errorf("インサイトの生成に失敗: %w", err)
	}

	fmt.Printf("生成しました: %s\n%s (%s/%s, confidence %d)\n%s\n", insight.ID, insight.Title, insight.Priority, insight.Category, insight.Confidence, insight.Content)
	return nil
}

// InsightGenerateAllAction は全アクティブユーザの一括生成を実行するコマンドのアクション
func InsightGenerateAllAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	report, err := appCtx.Container.Scheduler.RunDailyGeneration(ctx)
	if err != nil {
		return fmt.Errorf("一括生成に失敗: %w", err)
	}

	fmt.Printf("ユーザ数: %d, 生成: %d, スキップ: %d, 失敗: %d\n", report.Users, report.Generated, report.Skipped, report.Failed)
	return nil
}

// InsightListAction はインサイト一覧を表示するコマンドのアクション
func InsightListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	userStr := cmd.String("user")
	includeArchived := cmd.Bool("all")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	userID, err := parseRequiredUUID(userStr, "--user")
	if err != nil {
		return err
	}

	insights, err := appCtx.Container.Insights.ListByUser(ctx, userID, includeArchived)
	if err != nil {
		return fmt.Errorf("インサイトの取得に失敗: %w", err)
	}

	if len(insights) == 0 {
		fmt.Println("インサイトはありません")
		return nil
	}

	renderInsightsTable(insights)
	return nil
}

// InsightReadAction はインサイトを既読にするコマンドのアクション
func InsightReadAction(ctx context.Context, cmd *cli.Command) error {
	return updateInsightFlag(ctx, cmd, "既読", func(appCtx *AppContext, ctx context.Context, id string) error {
		insightID, err := parseRequiredUUID(id, "--id")
		if err != nil {
			return err
		}
		return appCtx.Container.Insights.MarkRead(ctx, insightID)
	})
}

// InsightArchiveAction はインサイトをアーカイブするコマンドのアクション
func InsightArchiveAction(ctx context.Context, cmd *cli.Command) error {
	return updateInsightFlag(ctx, cmd, "アーカイブ", func(appCtx *AppContext, ctx context.Context, id string) error {
		insightID, err := parseRequiredUUID(id, "--id")
		if err != nil {
			return err
		}
		return appCtx.Container.Insights.Archive(ctx, insightID)
	})
}

// InsightCleanupAction は期限切れのインサイトを削除するコマンドのアクション
func InsightCleanupAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	deleted, err := appCtx.Container.Scheduler.RunCleanup(ctx)
	if err != nil {
		return fmt.Errorf("クリーンアップに失敗: %w", err)
	}

	fmt.Printf("%d 件削除しました\n", deleted)
	return nil
}

func updateInsightFlag(ctx context.Context, cmd *cli.Command, label string, update func(*AppContext, context.Context, string) error) error {
	envFile := cmd.String("env")
	id := cmd.String("id")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := update(appCtx, ctx, id); err != nil {
		return fmt.Errorf("%sに失敗: %w", label, err)
	}

	fmt.Printf("%sにしました: %s\n", label, id)
	return nil
}

func renderInsightsTable(insights []*domain.Insight) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Kind", "Priority", "Title", "Read", "Generated At")

	for _, insight := range insights {
		read := ""
		if insight.Read {
			read = "✓"
		}
		table.Append(
			insight.ID.String(),
			string(insight.Kind),
			string(insight.Priority),
			truncateString(insight.Title, 40),
			read,
			insight.GeneratedAt.Format("2006-01-02 15:04"),
		)
	}

	table.Render()
}
