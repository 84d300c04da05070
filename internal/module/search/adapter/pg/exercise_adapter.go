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

// ExerciseLogAdapter は運動記録のベクトル検索アダプタ
type ExerciseLogAdapter struct {
	q DBTX
}

// NewExerciseLogAdapter は新しいExerciseLogAdapterを返す
func NewExerciseLogAdapter(q DBTX) *ExerciseLogAdapter {
	return &ExerciseLogAdapter{q: q}
}

var _ domain.EntityAdapter = (*ExerciseLogAdapter)(nil)

// Kind は担当エンティティ種別を返す
func (a *ExerciseLogAdapter) Kind() domain.EntityKind {
	return domain.KindExerciseLogs
}

// Search は運動記録に対する類似検索を実行します
func (a *ExerciseLogAdapter) Search(ctx context.Context, queryVector []float32, patientID mo.Option[uuid.UUID], threshold float64, limit int) ([]*domain.SearchResult, error) {
	rows, err := a.q.Query(ctx, `
		SELECT id, activity, COALESCE(duration_minutes, 0), COALESCE(notes, ''), logged_at, 1 - (embedding <=> $1) AS similarity
		FROM exercise_logs
		WHERE embedding IS NOT NULL
		  AND ($2::uuid IS NULL OR patient_id = $2)
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY similarity DESC
		LIMIT $4
	`, pgvector.NewVector(queryVector), patientParam(patientID), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search exercise logs: %w", err)
	}
	defer rows.Close()

	var results []*domain.SearchResult
	for rows.Next() {
		var (
			id         uuid.UUID
			activity   string
			duration   int
			notes      string
			loggedAt   time.Time
			similarity float64
		)
		if err := rows.Scan(&id, &activity, &duration, &notes, &loggedAt, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan exercise log result: %w", err)
		}
		results = append(results, &domain.SearchResult{
			EntityID:   id,
			EntityKind: domain.KindExerciseLogs,
			Content:    activity,
			Similarity: similarity,
			Metadata: map[string]any{
				"durationMinutes": duration,
				"notes":           notes,
				"loggedAt":        loggedAt,
			},
		})
	}
	return results, rows.Err()
}
