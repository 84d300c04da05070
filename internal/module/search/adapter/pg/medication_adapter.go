package pg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jinford/health-rag/internal/module/search/domain"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"
)

// MedicationAdapter は処方薬のベクトル検索アダプタ
type MedicationAdapter struct {
	q DBTX
}

// NewMedicationAdapter は新しいMedicationAdapterを返す
func NewMedicationAdapter(q DBTX) *MedicationAdapter {
	return &MedicationAdapter{q: q}
}

var _ domain.EntityAdapter = (*MedicationAdapter)(nil)

// Kind は担当エンティティ種別を返す
func (a *MedicationAdapter) Kind() domain.EntityKind {
	return domain.KindMedications
}

// Search は処方薬に対する類似検索を実行します
func (a *MedicationAdapter) Search(ctx context.Context, queryVector []float32, patientID mo.Option[uuid.UUID], threshold float64, limit int) ([]*domain.SearchResult, error) {
	rows, err := a.q.Query(ctx, `
		SELECT id, name, dosage, COALESCE(frequency, ''), COALESCE(instructions, ''), 1 - (embedding <=> $1) AS similarity
		FROM medications
		WHERE embedding IS NOT NULL
		  AND ($2::uuid IS NULL OR patient_id = $2)
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY similarity DESC
		LIMIT $4
	`, pgvector.NewVector(queryVector), patientParam(patientID), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search medications: %w", err)
	}
	defer rows.Close()

	var results []*domain.SearchResult
	for rows.Next() {
		var (
			id                             uuid.UUID
			name, dosage, freq, directions string
			similarity                     float64
		)
		if err := rows.Scan(&id, &name, &dosage, &freq, &directions, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan medication result: %w", err)
		}
		results = append(results, &domain.SearchResult{
			EntityID:   id,
			EntityKind: domain.KindMedications,
			Content:    fmt.Sprintf("%s %s", name, dosage),
			Similarity: similarity,
			Metadata: map[string]any{
				"name":         name,
				"dosage":       dosage,
				"frequency":    freq,
				"instructions": directions,
			},
		})
	}
	return results, rows.Err()
}
