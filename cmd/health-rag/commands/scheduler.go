package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// SchedulerAction はインサイト定期生成スケジューラを常駐起動するコマンドのアクション
func SchedulerAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	scheduler := appCtx.Container.Scheduler
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("スケジューラの起動に失敗: %w", err)
	}

	fmt.Println("スケジューラを起動しました（Ctrl+Cで停止）")

	<-ctx.Done()

	scheduler.Stop()
	fmt.Println("スケジューラを停止しました")
	return nil
}
