package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/health-rag/internal/module/search/domain"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"
)

// NoteAdapter はノートのベクトル検索アダプタ
type NoteAdapter struct {
	q DBTX
}

// NewNoteAdapter は新しいNoteAdapterを返す
func NewNoteAdapter(q DBTX) *NoteAdapter {
	return &NoteAdapter{q: q}
}

var _ domain.EntityAdapter = (*NoteAdapter)(nil)

// Kind は担当エンティティ種別を返す
func (a *NoteAdapter) Kind() domain.EntityKind {
	return domain.KindNotes
}

// Search はノートに対する類似検索を実行します
func (a *NoteAdapter) Search(ctx context.Context, queryVector []float32, patientID mo.Option[uuid.UUID], threshold float64, limit int) ([]*domain.SearchResult, error) {
	rows, err := a.q.Query(ctx, `
		SELECT id, COALESCE(title, ''), content, created_at, 1 - (embedding <=> $1) AS similarity
		FROM notes
		WHERE embedding IS NOT NULL
		  AND ($2::uuid IS NULL OR patient_id = $2)
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY similarity DESC
		LIMIT $4
	`, pgvector.NewVector(queryVector), patientParam(patientID), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}
	defer rows.Close()

	var results []*domain.SearchResult
	for rows.Next() {
		var (
			id         uuid.UUID
			title      string
			content    string
			createdAt  time.Time
			similarity float64
		)
		if err := rows.Scan(&id, &title, &content, &createdAt, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan note result: %w", err)
		}
		results = append(results, &domain.SearchResult{
			EntityID:   id,
			EntityKind: domain.KindNotes,
			Content:    content,
			Similarity: similarity,
			Metadata: map[string]any{
				"title":     title,
				"createdAt": createdAt,
			},
		})
	}
	return results, rows.Err()
}
