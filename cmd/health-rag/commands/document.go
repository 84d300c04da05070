package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// DocumentProcessAction はドキュメントを分割してEmbeddingを保存するコマンドのアクション
func DocumentProcessAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	documentStr := cmd.String("document")
	ownerStr := cmd.String("owner")
	filePath := cmd.String("file")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	documentID, err := parseRequiredUUID(documentStr, "--document")
	if err != nil {
		return err
	}
	ownerID, err := parseRequiredUUID(ownerStr, "--owner")
	if err != nil {
		return err
	}

	text, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}

	count, err := appCtx.Container.Pipeline.Process(ctx, documentID, ownerID, string(text))
	if err != nil {
		return fmt.Errorf("ドキュメントの処理に失敗: %w", err)
	}

	fmt.Printf("%d チャンクを保存しました\n", count)
	return nil
}

// DocumentAskAction は単一ドキュメントに対する質問応答を実行するコマンドのアクション
func DocumentAskAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	documentStr := cmd.String("document")
	question := cmd.String("question")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	documentID, err := parseRequiredUUID(documentStr, "--document")
	if err != nil {
		return err
	}

	answer, err := appCtx.Container.Pipeline.AnswerQuestion(ctx, documentID, question)
	if err != nil {
		return fmt.Errorf("質問応答に失敗: %w", err)
	}

	fmt.Println(answer.Answer)

	if len(answer.Sources) > 0 {
		fmt.Println("\n--- 出典チャンク ---")
		for _, src := range answer.Sources {
			fmt.Printf("#%d (%.3f) %s\n", src.ChunkIndex, src.Similarity, truncateString(src.Excerpt, 60))
		}
	}

	return nil
}
