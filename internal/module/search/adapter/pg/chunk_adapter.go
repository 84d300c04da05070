package pg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jinford/health-rag/internal/module/search/domain"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"
)

// ChunkAdapter はドキュメントチャンクのベクトル検索アダプタ。
// 種別横断検索（所有者スコープ）と単一ドキュメントスコープの検索の両方を提供する。
type ChunkAdapter struct {
	q DBTX
}

// NewChunkAdapter は新しいChunkAdapterを返す
func NewChunkAdapter(q DBTX) *ChunkAdapter {
	return &ChunkAdapter{q: q}
}

var _ domain.EntityAdapter = (*ChunkAdapter)(nil)

// Kind は担当エンティティ種別を返す
func (a *ChunkAdapter) Kind() domain.EntityKind {
	return domain.KindDocumentChunks
}

// Search はドキュメントチャンクに対する類似検索を実行します
func (a *ChunkAdapter) Search(ctx context.Context, queryVector []float32, ownerID mo.Option[uuid.UUID], threshold float64, limit int) ([]*domain.SearchResult, error) {
	rows, err := a.q.Query(ctx, `
		SELECT id, document_id, chunk_index, content, start_char, end_char, 1 - (embedding <=> $1) AS similarity
		FROM document_chunks
		WHERE embedding IS NOT NULL
		  AND ($2::uuid IS NULL OR owner_id = $2)
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY similarity DESC
		LIMIT $4
	`, pgvector.NewVector(queryVector), patientParam(ownerID), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search document chunks: %w", err)
	}
	defer rows.Close()
	return scanChunkResults(rows)
}

// SearchByDocument は単一ドキュメントのチャンクに限定した類似検索を実行します
func (a *ChunkAdapter) SearchByDocument(ctx context.Context, documentID uuid.UUID, queryVector []float32, threshold float64, limit int) ([]*domain.SearchResult, error) {
	rows, err := a.q.Query(ctx, `
		SELECT id, document_id, chunk_index, content, start_char, end_char, 1 - (embedding <=> $1) AS similarity
		FROM document_chunks
		WHERE embedding IS NOT NULL
		  AND document_id = $2
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY similarity DESC
		LIMIT $4
	`, pgvector.NewVector(queryVector), UUIDToPgtype(documentID), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks by document: %w", err)
	}
	defer rows.Close()
	return scanChunkResults(rows)
}

func scanChunkResults(rows pgx.Rows) ([]*domain.SearchResult, error) {
	var results []*domain.SearchResult
	for rows.Next() {
		var (
			id, documentID      uuid.UUID
			chunkIndex          int
			content             string
			startChar, endChar  int
			similarity          float64
		)
		if err := rows.Scan(&id, &documentID, &chunkIndex, &content, &startChar, &endChar, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan chunk result: %w", err)
		}
		results = append(results, &domain.SearchResult{
			EntityID:   id,
			EntityKind: domain.KindDocumentChunks,
			Content:    content,
			Similarity: similarity,
			Metadata: map[string]any{
				"documentId": documentID,
				"chunkIndex": chunkIndex,
				"startChar":  startChar,
				"endChar":    endChar,
			},
		})
	}
	return results, rows.Err()
}
