package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jinford/health-rag/internal/platform/container"
	"github.com/jinford/health-rag/pkg/config"
	"github.com/samber/mo"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.Container
}

// NewAppContext は設定を読み込み、依存関係を初期化して AppContext を作成する
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	cont, err := container.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// parseOptionalUUID は空文字列を未指定として扱うUUIDパーサ
func parseOptionalUUID(value, name string) (mo.Option[uuid.UUID], error) {
	if value == "" {
		return mo.None[uuid.UUID](), nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return mo.None[uuid.UUID](), fmt.Errorf("%s のパースに失敗: %w", name, err)
	}
	return mo.Some(id), nil
}

// parseRequiredUUID は必須UUIDのパーサ
func parseRequiredUUID(value, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s のパースに失敗: %w", name, err)
	}
	return id, nil
}

// truncateString は表示用に文字列を切り詰める
func truncateString(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
