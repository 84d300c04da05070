package pg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jinford/health-rag/internal/module/records/domain"
	pgvector "github.com/pgvector/pgvector-go"
)

// NoteRepository は domain.NoteRepository を実装する PostgreSQL リポジトリ
type NoteRepository struct {
	q DBTX
}

// NewNoteRepository は新しいNoteRepositoryを返す
func NewNoteRepository(q DBTX) *NoteRepository {
	return &NoteRepository{q: q}
}

var _ domain.NoteRepository = (*NoteRepository)(nil)

// ListRecentByPatient は患者の直近のノートを新しい順に取得します
func (r *NoteRepository) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*domain.Note, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, patient_id, title, content, created_at
		FROM notes
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, UUIDToPgtype(patientID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent notes: %w", err)
	}
	defer rows.Close()

	var notes []*domain.Note
	for rows.Next() {
		note := &domain.Note{}
		if err := rows.Scan(&note.ID, &note.PatientID, &note.Title, &note.Content, &note.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// ListMissingEmbeddings はEmbedding未設定のノートをページングで取得します。
// 空文字列のみのレコードはEmbedding対象外のため除外する。
func (r *NoteRepository) ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*domain.EmbeddingTarget, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, COALESCE(title, ''), content
		FROM notes
		WHERE embedding IS NULL AND btrim(content) <> ''
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes missing embeddings: %w", err)
	}
	defer rows.Close()

	var targets []*domain.EmbeddingTarget
	for rows.Next() {
		var id uuid.UUID
		note := &domain.Note{}
		if err := rows.Scan(&id, &note.Title, &note.Content); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		targets = append(targets, &domain.EmbeddingTarget{
			ID:    id,
			Field: domain.FieldContent,
			Text:  note.EmbeddingText(),
		})
	}
	return targets, rows.Err()
}

// SetEmbedding はノートのEmbeddingベクトルを書き込みます
func (r *NoteRepository) SetEmbedding(ctx context.Context, id uuid.UUID, vector []float32) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE notes SET embedding = $2 WHERE id = $1
	`, UUIDToPgtype(id), pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("failed to set note embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("note not found: %s", id)
	}
	return nil
}
