package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jinford/health-rag/internal/module/chat/domain"
	llmdomain "github.com/jinford/health-rag/internal/module/llm/domain"
)

// ConversationRepository は会話のPostgreSQL永続化実装
type ConversationRepository struct {
	q DBTX
}

// NewConversationRepository は新しいConversationRepositoryを作成する
func NewConversationRepository(q DBTX) *ConversationRepository {
	return &ConversationRepository{q: q}
}

var _ domain.ConversationRepository = (*ConversationRepository)(nil)

// Create は会話を作成します
func (r *ConversationRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	var patientID pgtype.UUID
	if conversation.PatientID != nil {
		patientID = pgtype.UUID{Bytes: *conversation.PatientID, Valid: true}
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO conversations (id, user_id, patient_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`,
		uuidParam(conversation.ID),
		uuidParam(conversation.UserID),
		patientID,
		conversation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// Get は会話を取得します
func (r *ConversationRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, user_id, patient_id, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`, uuidParam(id))

	var (
		conversation domain.Conversation
		convID       pgtype.UUID
		userID       pgtype.UUID
		patientID    pgtype.UUID
	)
	err := row.Scan(&convID, &userID, &patientID, &conversation.CreatedAt, &conversation.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: conversation %s", llmdomain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	conversation.ID = uuid.UUID(convID.Bytes)
	conversation.UserID = uuid.UUID(userID.Bytes)
	if patientID.Valid {
		pid := uuid.UUID(patientID.Bytes)
		conversation.PatientID = &pid
	}
	return &conversation, nil
}

// Touch は会話の更新日時を進めます
func (r *ConversationRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE conversations SET updated_at = $2 WHERE id = $1
	`, uuidParam(id), at)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: conversation %s", llmdomain.ErrNotFound, id)
	}
	return nil
}

func uuidParam(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
