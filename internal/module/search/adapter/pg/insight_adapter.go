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

// InsightAdapter は生成済みインサイトのベクトル検索アダプタ。
// インサイト自体もEmbedding付きで永続化され、他のレコードと同様に検索対象になる。
type InsightAdapter struct {
	q DBTX
}

// NewInsightAdapter は新しいInsightAdapterを返す
func NewInsightAdapter(q DBTX) *InsightAdapter {
	return &InsightAdapter{q: q}
}

var _ domain.EntityAdapter = (*InsightAdapter)(nil)

// Kind は担当エンティティ種別を返す
func (a *InsightAdapter) Kind() domain.EntityKind {
	return domain.KindInsights
}

// Search はインサイトに対する類似検索を実行します（アーカイブ済みは除外）
func (a *InsightAdapter) Search(ctx context.Context, queryVector []float32, patientID mo.Option[uuid.UUID], threshold float64, limit int) ([]*domain.SearchResult, error) {
	rows, err := a.q.Query(ctx, `
		SELECT id, kind, title, content, confidence, priority, category, generated_at, 1 - (embedding <=> $1) AS similarity
		FROM insights
		WHERE embedding IS NOT NULL
		  AND NOT archived
		  AND ($2::uuid IS NULL OR patient_id = $2)
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY similarity DESC
		LIMIT $4
	`, pgvector.NewVector(queryVector), patientParam(patientID), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search insights: %w", err)
	}
	defer rows.Close()

	var results []*domain.SearchResult
	for rows.Next() {
		var (
			id                              uuid.UUID
			kind, title, content            string
			confidence                      int
			priority, category              string
			generatedAt                     time.Time
			similarity                      float64
		)
		if err := rows.Scan(&id, &kind, &title, &content, &confidence, &priority, &category, &generatedAt, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan insight result: %w", err)
		}
		results = append(results, &domain.SearchResult{
			EntityID:   id,
			EntityKind: domain.KindInsights,
			Content:    title + ": " + content,
			Similarity: similarity,
			Metadata: map[string]any{
				"kind":        kind,
				"title":       title,
				"confidence":  confidence,
				"priority":    priority,
				"category":    category,
				"generatedAt": generatedAt,
			},
		})
	}
	return results, rows.Err()
}
