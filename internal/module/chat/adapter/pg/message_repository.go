package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jinford/health-rag/internal/module/chat/domain"
)

// MessageRepository はメッセージのPostgreSQL永続化実装
type MessageRepository struct {
	q DBTX
}

// NewMessageRepository は新しいMessageRepositoryを作成する
func NewMessageRepository(q DBTX) *MessageRepository {
	return &MessageRepository{q: q}
}

var _ domain.MessageRepository = (*MessageRepository)(nil)

// Append はメッセージを追加します
func (r *MessageRepository) Append(ctx context.Context, message *domain.Message) error {
	var metadata []byte
	if message.Metadata != nil {
		var err error
		metadata, err = json.Marshal(message.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal message metadata: %w", err)
		}
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		uuidParam(message.ID),
		uuidParam(message.ConversationID),
		string(message.Role),
		message.Content,
		metadata,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListByConversation は作成日時の昇順でメッセージを返します
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*domain.Message, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, conversation_id, role, content, metadata, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`, uuidParam(conversationID))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var (
			message  domain.Message
			msgID    pgtype.UUID
			convID   pgtype.UUID
			role     string
			metadata []byte
		)
		if err := rows.Scan(&msgID, &convID, &role, &message.Content, &metadata, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		message.ID = uuid.UUID(msgID.Bytes)
		message.ConversationID = uuid.UUID(convID.Bytes)
		message.Role = domain.Role(role)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &message.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal message metadata: %w", err)
			}
		}
		messages = append(messages, &message)
	}
	return messages, rows.Err()
}
