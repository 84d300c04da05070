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

// VitalAdapter はバイタル測定値のベクトル検索アダプタ
type VitalAdapter struct {
	q DBTX
}

// NewVitalAdapter は新しいVitalAdapterを返す
func NewVitalAdapter(q DBTX) *VitalAdapter {
	return &VitalAdapter{q: q}
}

var _ domain.EntityAdapter = (*VitalAdapter)(nil)

// Kind は担当エンティティ種別を返す
func (a *VitalAdapter) Kind() domain.EntityKind {
	return domain.KindVitals
}

// Search はバイタル測定値に対する類似検索を実行します
func (a *VitalAdapter) Search(ctx context.Context, queryVector []float32, patientID mo.Option[uuid.UUID], threshold float64, limit int) ([]*domain.SearchResult, error) {
	rows, err := a.q.Query(ctx, `
		SELECT id, kind, value, COALESCE(unit, ''), COALESCE(notes, ''), measured_at, 1 - (embedding <=> $1) AS similarity
		FROM vitals
		WHERE embedding IS NOT NULL
		  AND ($2::uuid IS NULL OR patient_id = $2)
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY similarity DESC
		LIMIT $4
	`, pgvector.NewVector(queryVector), patientParam(patientID), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search vitals: %w", err)
	}
	defer rows.Close()

	var results []*domain.SearchResult
	for rows.Next() {
		var (
			id          uuid.UUID
			kind        string
			value       float64
			unit, notes string
			measuredAt  time.Time
			similarity  float64
		)
		if err := rows.Scan(&id, &kind, &value, &unit, &notes, &measuredAt, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan vital result: %w", err)
		}
		results = append(results, &domain.SearchResult{
			EntityID:   id,
			EntityKind: domain.KindVitals,
			Content:    fmt.Sprintf("%s: %g %s %s", kind, value, unit, notes),
			Similarity: similarity,
			Metadata: map[string]any{
				"kind":       kind,
				"value":      value,
				"unit":       unit,
				"measuredAt": measuredAt,
			},
		})
	}
	return results, rows.Err()
}
