package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jinford/health-rag/internal/module/records/domain"
	pgvector "github.com/pgvector/pgvector-go"
)

// ExerciseLogRepository は domain.ExerciseLogRepository を実装する PostgreSQL リポジトリ
type ExerciseLogRepository struct {
	q DBTX
}

// NewExerciseLogRepository は新しいExerciseLogRepositoryを返す
func NewExerciseLogRepository(q DBTX) *ExerciseLogRepository {
	return &ExerciseLogRepository{q: q}
}

var _ domain.ExerciseLogRepository = (*ExerciseLogRepository)(nil)

const exerciseColumns = `id, patient_id, activity, COALESCE(duration_minutes, 0), COALESCE(notes, ''), logged_at, created_at`

// ListByPatientRange は期間内の運動記録を記録時刻の昇順で取得します
func (r *ExerciseLogRepository) ListByPatientRange(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*domain.ExerciseLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+exerciseColumns+`
		FROM exercise_logs
		WHERE patient_id = $1 AND logged_at >= $2 AND logged_at < $3
		ORDER BY logged_at
	`, UUIDToPgtype(patientID), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercise logs in range: %w", err)
	}
	defer rows.Close()
	return scanExerciseLogs(rows)
}

// ListRecentByPatient は患者の直近の運動記録を新しい順に取得します
func (r *ExerciseLogRepository) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*domain.ExerciseLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+exerciseColumns+`
		FROM exercise_logs
		WHERE patient_id = $1
		ORDER BY logged_at DESC
		LIMIT $2
	`, UUIDToPgtype(patientID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent exercise logs: %w", err)
	}
	defer rows.Close()
	return scanExerciseLogs(rows)
}

func scanExerciseLogs(rows pgx.Rows) ([]*domain.ExerciseLog, error) {
	var logs []*domain.ExerciseLog
	for rows.Next() {
		l := &domain.ExerciseLog{}
		if err := rows.Scan(&l.ID, &l.PatientID, &l.Activity, &l.DurationMinutes, &l.Notes, &l.LoggedAt, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exercise log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// ListMissingEmbeddings はEmbedding未設定の運動記録をページングで取得します
func (r *ExerciseLogRepository) ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*domain.EmbeddingTarget, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, activity, COALESCE(notes, '')
		FROM exercise_logs
		WHERE embedding IS NULL AND btrim(activity) <> ''
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercise logs missing embeddings: %w", err)
	}
	defer rows.Close()

	var targets []*domain.EmbeddingTarget
	for rows.Next() {
		var id uuid.UUID
		l := &domain.ExerciseLog{}
		if err := rows.Scan(&id, &l.Activity, &l.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan exercise log: %w", err)
		}
		targets = append(targets, &domain.EmbeddingTarget{
			ID:    id,
			Field: domain.FieldContent,
			Text:  l.EmbeddingText(),
		})
	}
	return targets, rows.Err()
}

// SetEmbedding は運動記録のEmbeddingベクトルを書き込みます
func (r *ExerciseLogRepository) SetEmbedding(ctx context.Context, id uuid.UUID, vector []float32) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE exercise_logs SET embedding = $2 WHERE id = $1
	`, UUIDToPgtype(id), pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("failed to set exercise log embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("exercise log not found: %s", id)
	}
	return nil
}
