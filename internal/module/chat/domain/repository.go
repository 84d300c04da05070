package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConversationRepository は会話の永続化を担う
type ConversationRepository interface {
	Create(ctx context.Context, conversation *Conversation) error
	// Get は会話を取得する。存在しない場合はErrNotFound
	Get(ctx context.Context, id uuid.UUID) (*Conversation, error)
	// Touch は会話の更新日時を進める
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
}

// MessageRepository はメッセージの永続化を担う
type MessageRepository interface {
	Append(ctx context.Context, message *Message) error
	// ListByConversation は作成日時の昇順でメッセージを返す
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*Message, error)
}
