package commands

import (
	"context"
	"fmt"

	"github.com/jinford/health-rag/internal/module/chat/application"
	"github.com/urfave/cli/v3"
)

// ChatSendAction はチャットを1ターン実行するコマンドのアクション
func ChatSendAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	userStr := cmd.String("user")
	patientStr := cmd.String("patient")
	conversationStr := cmd.String("conversation")
	message := cmd.String("message")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	userID, err := parseRequiredUUID(userStr, "--user")
	if err != nil {
		return err
	}
	patientID, err := parseOptionalUUID(patientStr, "--patient")
	if err != nil {
		return err
	}
	conversationID, err := parseOptionalUUID(conversationStr, "--conversation")
	if err != nil {
		return err
	}

	result, err := appCtx.Container.Assistant.Chat(ctx, application.ChatParams{
		UserID:         userID,
		PatientID:      patientID,
		ConversationID: conversationID,
		Message:        message,
	})
	if err != nil {
		return fmt.Errorf("チャットの実行に失敗: %w", err)
	}

	fmt.Printf("会話ID: %s\n\n%s\n", result.ConversationID, result.Message)

	if len(result.Sources) > 0 {
		fmt.Println("\n--- 出典 ---")
		for _, src := range result.Sources {
			fmt.Printf("[%s] %.3f %s\n", src.EntityKind, src.Similarity, truncateString(src.Content, 60))
		}
	}

	return nil
}

// ChatHistoryAction は会話履歴を表示するコマンドのアクション
func ChatHistoryAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	conversationStr := cmd.String("conversation")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	conversationID, err := parseRequiredUUID(conversationStr, "--conversation")
	if err != nil {
		return err
	}

	messages, err := appCtx.Container.Assistant.History(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("会話履歴の取得に失敗: %w", err)
	}

	if len(messages) == 0 {
		fmt.Println("メッセージはありません")
		return nil
	}

	for _, msg := range messages {
		fmt.Printf("[%s] %s\n%s\n\n", msg.CreatedAt.Format("2006-01-02 15:04"), msg.Role, msg.Content)
	}

	return nil
}
