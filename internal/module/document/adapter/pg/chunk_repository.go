package pg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jinford/health-rag/internal/module/document/domain"
	pgvector "github.com/pgvector/pgvector-go"
)

// ChunkRepository はドキュメントチャンクのPostgreSQL永続化実装。
// 置き換え処理をトランザクション内で実行できるよう、pgx.Txも受け取れる
// DBTXに依存する。
type ChunkRepository struct {
	q DBTX
}

// NewChunkRepository は新しいChunkRepositoryを作成する
func NewChunkRepository(q DBTX) *ChunkRepository {
	return &ChunkRepository{q: q}
}

var _ domain.ChunkRepository = (*ChunkRepository)(nil)

// DeleteByDocument は指定ドキュメントの全チャンクを削除します
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM document_chunks
		WHERE document_id = $1
	`, uuidParam(documentID))
	if err != nil {
		return fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
	}
	return nil
}

// Insert はチャンクをEmbedding付きで保存します
func (r *ChunkRepository) Insert(ctx context.Context, chunk *domain.DocumentChunk, embedding []float32) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO document_chunks (id, document_id, owner_id, chunk_index, content, token_count, start_char, end_char, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`,
		uuidParam(chunk.ID),
		uuidParam(chunk.DocumentID),
		uuidParam(chunk.OwnerID),
		chunk.Index,
		chunk.Content,
		chunk.TokenCount,
		chunk.StartChar,
		chunk.EndChar,
		pgvector.NewVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk %d of document %s: %w", chunk.Index, chunk.DocumentID, err)
	}
	return nil
}

func uuidParam(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
