package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation はチャットの会話を表す。
// 会話IDなしの最初のメッセージで遅延作成され、メッセージが追加されるたびに
// UpdatedAtが更新される。自動削除はされない。
type Conversation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	PatientID *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role はメッセージの発話者種別
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message は会話内の1メッセージを表す。
// アシスタント側のメッセージは出典情報をMetadataに持つ。
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           Role
	Content        string
	Metadata       map[string]any
	CreatedAt      time.Time
}
