package domain

import (
	"context"

	"github.com/google/uuid"
)

// ChunkRepository はドキュメントチャンクの永続化を担う
type ChunkRepository interface {
	// DeleteByDocument は指定ドキュメントの全チャンクを削除する
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
	// Insert はチャンクをEmbedding付きで保存する
	Insert(ctx context.Context, chunk *DocumentChunk, embedding []float32) error
}
