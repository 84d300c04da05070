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

// DietLogAdapter は食事記録のベクトル検索アダプタ。
// food_items と notes の2つのEmbeddingを持つ複合シグナル型で、
// 類似度は各フィールドの類似度（EmbeddingがNULLのフィールドは0）の最大値。
// 片方のフィールドにEmbeddingがないだけで行が除外されることはない。
type DietLogAdapter struct {
	q DBTX
}

// NewDietLogAdapter は新しいDietLogAdapterを返す
func NewDietLogAdapter(q DBTX) *DietLogAdapter {
	return &DietLogAdapter{q: q}
}

var _ domain.EntityAdapter = (*DietLogAdapter)(nil)

// Kind は担当エンティティ種別を返す
func (a *DietLogAdapter) Kind() domain.EntityKind {
	return domain.KindDietLogs
}

// Search は食事記録に対する類似検索を実行します
func (a *DietLogAdapter) Search(ctx context.Context, queryVector []float32, patientID mo.Option[uuid.UUID], threshold float64, limit int) ([]*domain.SearchResult, error) {
	rows, err := a.q.Query(ctx, `
		SELECT id, COALESCE(meal_type, ''), COALESCE(food_items, ''), COALESCE(calories, 0), COALESCE(notes, ''), logged_at,
		       GREATEST(
		           COALESCE(1 - (food_items_embedding <=> $1), 0),
		           COALESCE(1 - (notes_embedding <=> $1), 0)
		       ) AS similarity
		FROM diet_logs
		WHERE (food_items_embedding IS NOT NULL OR notes_embedding IS NOT NULL)
		  AND ($2::uuid IS NULL OR patient_id = $2)
		  AND GREATEST(
		          COALESCE(1 - (food_items_embedding <=> $1), 0),
		          COALESCE(1 - (notes_embedding <=> $1), 0)
		      ) >= $3
		ORDER BY similarity DESC
		LIMIT $4
	`, pgvector.NewVector(queryVector), patientParam(patientID), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search diet logs: %w", err)
	}
	defer rows.Close()

	var results []*domain.SearchResult
	for rows.Next() {
		var (
			id                         uuid.UUID
			mealType, foodItems, notes string
			calories                   int
			loggedAt                   time.Time
			similarity                 float64
		)
		if err := rows.Scan(&id, &mealType, &foodItems, &calories, &notes, &loggedAt, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan diet log result: %w", err)
		}
		content := foodItems
		if content == "" {
			content = notes
		}
		results = append(results, &domain.SearchResult{
			EntityID:   id,
			EntityKind: domain.KindDietLogs,
			Content:    content,
			Similarity: similarity,
			Metadata: map[string]any{
				"mealType": mealType,
				"calories": calories,
				"notes":    notes,
				"loggedAt": loggedAt,
			},
		})
	}
	return results, rows.Err()
}
