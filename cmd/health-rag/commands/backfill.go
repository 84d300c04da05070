package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// BackfillAction はEmbedding未設定レコードの一括計算を実行するコマンドのアクション
func BackfillAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	report := appCtx.Container.BackfillJob.Run(ctx)

	fmt.Printf("計算: %d, スキップ: %d, 失敗: %d\n", report.Embedded, report.Skipped, report.Failed)
	return nil
}
