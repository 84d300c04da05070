package domain

import (
	"github.com/google/uuid"
)

// EntityKind は検索対象のエンティティ種別タグ
type EntityKind string

const (
	KindNotes          EntityKind = "notes"
	KindMedications    EntityKind = "medications"
	KindVitals         EntityKind = "vitals"
	KindDietLogs       EntityKind = "diet_logs"
	KindExerciseLogs   EntityKind = "exercise_logs"
	KindDocumentChunks EntityKind = "document_chunks"
	KindInsights       EntityKind = "insights"
)

// SearchResult は種別横断の検索結果を表します（永続化されない一時データ）。
// Similarity は 1 - コサイン距離 として導出された [0,1] の値。
type SearchResult struct {
	EntityID   uuid.UUID
	EntityKind EntityKind
	Content    string
	Similarity float64
	Metadata   map[string]any
}
