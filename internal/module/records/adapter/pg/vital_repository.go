package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jinford/health-rag/internal/module/records/domain"
	pgvector "github.com/pgvector/pgvector-go"
)

// VitalRepository は domain.VitalRepository を実装する PostgreSQL リポジトリ
type VitalRepository struct {
	q DBTX
}

// NewVitalRepository は新しいVitalRepositoryを返す
func NewVitalRepository(q DBTX) *VitalRepository {
	return &VitalRepository{q: q}
}

var _ domain.VitalRepository = (*VitalRepository)(nil)

const vitalColumns = `id, patient_id, kind, value, secondary_value, COALESCE(unit, ''), COALESCE(notes, ''), measured_at, created_at`

// ListByPatientRange は期間内のバイタル測定値を測定時刻の昇順で取得します
func (r *VitalRepository) ListByPatientRange(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*domain.VitalMeasurement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+vitalColumns+`
		FROM vitals
		WHERE patient_id = $1 AND measured_at >= $2 AND measured_at < $3
		ORDER BY measured_at
	`, UUIDToPgtype(patientID), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list vitals in range: %w", err)
	}
	defer rows.Close()
	return scanVitals(rows)
}

// ListRecentByPatient は患者の直近のバイタル測定値を新しい順に取得します
func (r *VitalRepository) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*domain.VitalMeasurement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+vitalColumns+`
		FROM vitals
		WHERE patient_id = $1
		ORDER BY measured_at DESC
		LIMIT $2
	`, UUIDToPgtype(patientID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent vitals: %w", err)
	}
	defer rows.Close()
	return scanVitals(rows)
}

func scanVitals(rows pgx.Rows) ([]*domain.VitalMeasurement, error) {
	var vitals []*domain.VitalMeasurement
	for rows.Next() {
		v := &domain.VitalMeasurement{}
		var secondary pgtype.Float8
		if err := rows.Scan(&v.ID, &v.PatientID, &v.Kind, &v.Value, &secondary, &v.Unit, &v.Notes, &v.MeasuredAt, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vital: %w", err)
		}
		v.SecondaryValue = Float8ToPtr(secondary)
		vitals = append(vitals, v)
	}
	return vitals, rows.Err()
}

// ListMissingEmbeddings はEmbedding未設定のバイタルをページングで取得します。
// Embedding対象テキストはメモ付きの測定値のみ（メモなしは検索対象にならない）。
func (r *VitalRepository) ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*domain.EmbeddingTarget, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, kind, COALESCE(notes, '')
		FROM vitals
		WHERE embedding IS NULL AND notes IS NOT NULL AND btrim(notes) <> ''
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list vitals missing embeddings: %w", err)
	}
	defer rows.Close()

	var targets []*domain.EmbeddingTarget
	for rows.Next() {
		var id uuid.UUID
		v := &domain.VitalMeasurement{}
		if err := rows.Scan(&id, &v.Kind, &v.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan vital: %w", err)
		}
		targets = append(targets, &domain.EmbeddingTarget{
			ID:    id,
			Field: domain.FieldContent,
			Text:  v.EmbeddingText(),
		})
	}
	return targets, rows.Err()
}

// SetEmbedding はバイタルのEmbeddingベクトルを書き込みます
func (r *VitalRepository) SetEmbedding(ctx context.Context, id uuid.UUID, vector []float32) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE vitals SET embedding = $2 WHERE id = $1
	`, UUIDToPgtype(id), pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("failed to set vital embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vital not found: %s", id)
	}
	return nil
}
