package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/health-rag/internal/module/records/domain"
	pgvector "github.com/pgvector/pgvector-go"
)

// MedicationRepository は domain.MedicationRepository を実装する PostgreSQL リポジトリ
type MedicationRepository struct {
	q DBTX
}

// NewMedicationRepository は新しいMedicationRepositoryを返す
func NewMedicationRepository(q DBTX) *MedicationRepository {
	return &MedicationRepository{q: q}
}

var _ domain.MedicationRepository = (*MedicationRepository)(nil)

// ListRecentByPatient は患者の直近の処方薬を新しい順に取得します
func (r *MedicationRepository) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*domain.Medication, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, patient_id, name, dosage, COALESCE(frequency, ''), COALESCE(notes, ''), COALESCE(instructions, ''), created_at
		FROM medications
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, UUIDToPgtype(patientID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent medications: %w", err)
	}
	defer rows.Close()

	var meds []*domain.Medication
	for rows.Next() {
		med := &domain.Medication{}
		if err := rows.Scan(&med.ID, &med.PatientID, &med.Name, &med.Dosage, &med.Frequency, &med.Notes, &med.Instructions, &med.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		meds = append(meds, med)
	}
	return meds, rows.Err()
}

// DoseSummaries は期間内の薬ごとの服薬実績を集計します
func (r *MedicationRepository) DoseSummaries(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*domain.DoseSummary, error) {
	rows, err := r.q.Query(ctx, `
		SELECT m.id,
		       m.name,
		       COUNT(d.id) AS scheduled,
		       COUNT(d.id) FILTER (WHERE d.taken) AS taken,
		       COUNT(d.id) FILTER (WHERE NOT d.taken AND d.scheduled_at < now()) AS missed
		FROM medications m
		LEFT JOIN medication_doses d
		       ON d.medication_id = m.id
		      AND d.scheduled_at >= $2
		      AND d.scheduled_at < $3
		WHERE m.patient_id = $1
		GROUP BY m.id, m.name
		ORDER BY m.name
	`, UUIDToPgtype(patientID), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize doses: %w", err)
	}
	defer rows.Close()

	var summaries []*domain.DoseSummary
	for rows.Next() {
		s := &domain.DoseSummary{}
		if err := rows.Scan(&s.MedicationID, &s.MedicationName, &s.ScheduledDoses, &s.TakenDoses, &s.MissedDoses); err != nil {
			return nil, fmt.Errorf("failed to scan dose summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// ListMissingEmbeddings はEmbedding未設定の処方薬をページングで取得します
func (r *MedicationRepository) ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*domain.EmbeddingTarget, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, name, dosage, COALESCE(notes, ''), COALESCE(instructions, '')
		FROM medications
		WHERE embedding IS NULL AND btrim(name) <> ''
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications missing embeddings: %w", err)
	}
	defer rows.Close()

	var targets []*domain.EmbeddingTarget
	for rows.Next() {
		var id uuid.UUID
		med := &domain.Medication{}
		if err := rows.Scan(&id, &med.Name, &med.Dosage, &med.Notes, &med.Instructions); err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		targets = append(targets, &domain.EmbeddingTarget{
			ID:    id,
			Field: domain.FieldContent,
			Text:  med.EmbeddingText(),
		})
	}
	return targets, rows.Err()
}

// SetEmbedding は処方薬のEmbeddingベクトルを書き込みます
func (r *MedicationRepository) SetEmbedding(ctx context.Context, id uuid.UUID, vector []float32) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE medications SET embedding = $2 WHERE id = $1
	`, UUIDToPgtype(id), pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("failed to set medication embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("medication not found: %s", id)
	}
	return nil
}
