package domain

import (
	"time"

	"github.com/google/uuid"
)

// DocumentChunk はドキュメントを分割したチャンクを表す。
// ドキュメントの再処理時にはチャンク集合全体が原子的に置き換えられる
// （全削除してから再挿入。途中状態が並行する読み取りに見えてはならない）。
type DocumentChunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	OwnerID    uuid.UUID
	Index      int
	Content    string
	TokenCount int
	StartChar  int
	EndChar    int
	CreatedAt  time.Time
}

// DocumentAnswer はドキュメントに対する質問応答の結果を表す
type DocumentAnswer struct {
	Answer  string
	Sources []AnswerSource
}

// AnswerSource は回答の根拠となったチャンクの参照情報
type AnswerSource struct {
	ChunkID    uuid.UUID
	ChunkIndex int
	Excerpt    string
	Similarity float64
}
