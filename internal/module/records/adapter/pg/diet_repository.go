package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jinford/health-rag/internal/module/records/domain"
	pgvector "github.com/pgvector/pgvector-go"
)

// DietLogRepository は domain.DietLogRepository を実装する PostgreSQL リポジトリ。
// food_items と notes の2カラムが独立したEmbeddingを持つ。
type DietLogRepository struct {
	q DBTX
}

// NewDietLogRepository は新しいDietLogRepositoryを返す
func NewDietLogRepository(q DBTX) *DietLogRepository {
	return &DietLogRepository{q: q}
}

var _ domain.DietLogRepository = (*DietLogRepository)(nil)

const dietColumns = `id, patient_id, COALESCE(meal_type, ''), COALESCE(food_items, ''), COALESCE(calories, 0), COALESCE(notes, ''), logged_at, created_at`

// ListByPatientRange は期間内の食事記録を記録時刻の昇順で取得します
func (r *DietLogRepository) ListByPatientRange(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*domain.DietLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+dietColumns+`
		FROM diet_logs
		WHERE patient_id = $1 AND logged_at >= $2 AND logged_at < $3
		ORDER BY logged_at
	`, UUIDToPgtype(patientID), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list diet logs in range: %w", err)
	}
	defer rows.Close()
	return scanDietLogs(rows)
}

// ListRecentByPatient は患者の直近の食事記録を新しい順に取得します
func (r *DietLogRepository) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*domain.DietLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+dietColumns+`
		FROM diet_logs
		WHERE patient_id = $1
		ORDER BY logged_at DESC
		LIMIT $2
	`, UUIDToPgtype(patientID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent diet logs: %w", err)
	}
	defer rows.Close()
	return scanDietLogs(rows)
}

func scanDietLogs(rows pgx.Rows) ([]*domain.DietLog, error) {
	var logs []*domain.DietLog
	for rows.Next() {
		l := &domain.DietLog{}
		if err := rows.Scan(&l.ID, &l.PatientID, &l.MealType, &l.FoodItems, &l.Calories, &l.Notes, &l.LoggedAt, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan diet log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// ListMissingEmbeddings はEmbedding未設定のフィールドをページングで取得します。
// 1レコードから food_items と notes それぞれのターゲットが生成されうる。
func (r *DietLogRepository) ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*domain.EmbeddingTarget, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, COALESCE(food_items, ''), COALESCE(notes, ''),
		       (food_items_embedding IS NULL) AS food_missing,
		       (notes_embedding IS NULL) AS notes_missing
		FROM diet_logs
		WHERE (food_items_embedding IS NULL AND btrim(COALESCE(food_items, '')) <> '')
		   OR (notes_embedding IS NULL AND btrim(COALESCE(notes, '')) <> '')
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list diet logs missing embeddings: %w", err)
	}
	defer rows.Close()

	var targets []*domain.EmbeddingTarget
	for rows.Next() {
		var (
			id                       uuid.UUID
			foodItems, notes         string
			foodMissing, notesMissing bool
		)
		if err := rows.Scan(&id, &foodItems, &notes, &foodMissing, &notesMissing); err != nil {
			return nil, fmt.Errorf("failed to scan diet log: %w", err)
		}
		// 行を返す条件（btrimで空でないこと）と同じ基準でフィールドを選ぶ
		if foodMissing && strings.TrimSpace(foodItems) != "" {
			targets = append(targets, &domain.EmbeddingTarget{ID: id, Field: domain.FieldFoodItems, Text: foodItems})
		}
		if notesMissing && strings.TrimSpace(notes) != "" {
			targets = append(targets, &domain.EmbeddingTarget{ID: id, Field: domain.FieldNotes, Text: notes})
		}
	}
	return targets, rows.Err()
}

// SetEmbedding は指定フィールドのEmbeddingベクトルを書き込みます
func (r *DietLogRepository) SetEmbedding(ctx context.Context, id uuid.UUID, field domain.EmbeddingField, vector []float32) error {
	var column string
	switch field {
	case domain.FieldFoodItems:
		column = "food_items_embedding"
	case domain.FieldNotes:
		column = "notes_embedding"
	default:
		return fmt.Errorf("unsupported embedding field for diet log: %s", field)
	}

	// カラム名はフィールド定数からの固定マッピングのみ（ユーザ入力は渡らない）
	tag, err := r.q.Exec(ctx, `
		UPDATE diet_logs SET `+column+` = $2 WHERE id = $1
	`, UUIDToPgtype(id), pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("failed to set diet log embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("diet log not found: %s", id)
	}
	return nil
}
