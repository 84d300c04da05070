package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoInsight はビルダーが対象データからインサイトを生成しなかったことを示す。
// エラーではなく「保存せずスキップ」として扱う。
var ErrNoInsight = errors.New("no insight produced")

// InsightKind はインサイトの種別
type InsightKind string

const (
	KindMedicationAdherence InsightKind = "medication_adherence"
	KindHealthTrend         InsightKind = "health_trend"
	KindRecommendation      InsightKind = "recommendation"
	KindAlert               InsightKind = "alert"
	KindPatternDetection    InsightKind = "pattern_detection"
)

// Valid は既知の種別かどうかを返す
func (k InsightKind) Valid() bool {
	switch k {
	case KindMedicationAdherence, KindHealthTrend, KindRecommendation, KindAlert, KindPatternDetection:
		return true
	}
	return false
}

// Priority はインサイトの優先度
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Category はインサイトの分類
type Category string

const (
	CategoryMedication Category = "medication"
	CategoryVitals     Category = "vitals"
	CategoryLifestyle  Category = "lifestyle"
	CategoryGeneral    Category = "general"
)

// Insight は自動生成された構造化インサイトを表す。
// `Title + " " + Content` のEmbeddingとともに永続化され、
// 他のレコードと同様にセマンティック検索の対象になる。
// 作成後に変わるのは Read / Archived フラグのみで、
// 期限切れ行はスケジューラのクリーンアップで削除される。
type Insight struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	PatientID       uuid.UUID
	Kind            InsightKind
	Title           string
	Content         string
	Confidence      int
	Priority        Priority
	Category        Category
	Recommendations []string
	Read            bool
	Archived        bool
	GeneratedAt     time.Time
	ExpiresAt       *time.Time
}

// EmbeddingText はEmbedding対象のテキストを返す
func (i *Insight) EmbeddingText() string {
	return i.Title + " " + i.Content
}
