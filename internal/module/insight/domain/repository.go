package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InsightRepository はインサイトの永続化を担う
type InsightRepository interface {
	// Create はインサイトをEmbedding付きで保存する
	Create(ctx context.Context, insight *Insight, embedding []float32) error
	// ListByUser はユーザのインサイトを生成日時の降順で返す
	ListByUser(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]*Insight, error)
	// MarkRead は既読フラグを立てる。対象が存在しない場合はErrNotFound
	MarkRead(ctx context.Context, id uuid.UUID) error
	// Archive はアーカイブフラグを立てる。対象が存在しない場合はErrNotFound
	Archive(ctx context.Context, id uuid.UUID) error
	// DeleteExpired は期限切れのインサイトを削除し、削除件数を返す
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
