package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Note は患者の診療メモ・自由記述ノートを表します
type Note struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	Title     string
	Content   string
	CreatedAt time.Time
}

// EmbeddingText はEmbedding対象のテキストを返す
func (n *Note) EmbeddingText() string {
	if n.Title == "" {
		return n.Content
	}
	return n.Title + "\n" + n.Content
}

// Medication は処方薬を表します
type Medication struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	Name         string
	Dosage       string
	Frequency    string
	Notes        string
	Instructions string
	CreatedAt    time.Time
}

// EmbeddingText はEmbedding対象のテキストを返す
func (m *Medication) EmbeddingText() string {
	parts := []string{m.Name, m.Dosage, m.Notes, m.Instructions}
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// VitalKind はバイタル測定の種別コード
type VitalKind string

const (
	VitalBloodPressure VitalKind = "blood_pressure"
	VitalGlucose       VitalKind = "blood_glucose"
	VitalWeight        VitalKind = "weight"
	VitalHeartRate     VitalKind = "heart_rate"
	VitalTemperature   VitalKind = "temperature"
)

// VitalMeasurement はバイタル測定値を表します。
// 血圧のように値が対になる場合は SecondaryValue（拡張期）を使用する。
type VitalMeasurement struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	Kind           VitalKind
	Value          float64
	SecondaryValue *float64
	Unit           string
	Notes          string
	MeasuredAt     time.Time
	CreatedAt      time.Time
}

// EmbeddingText はEmbedding対象のテキストを返す
func (v *VitalMeasurement) EmbeddingText() string {
	if strings.TrimSpace(v.Notes) == "" {
		return ""
	}
	return string(v.Kind) + ": " + v.Notes
}

// DietLog は食事記録を表します。
// FoodItems と Notes の2つのEmbedding対象フィールドを持つ。
type DietLog struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	MealType  string
	FoodItems string
	Calories  int
	Notes     string
	LoggedAt  time.Time
	CreatedAt time.Time
}

// ExerciseLog は運動記録を表します
type ExerciseLog struct {
	ID              uuid.UUID
	PatientID       uuid.UUID
	Activity        string
	DurationMinutes int
	Notes           string
	LoggedAt        time.Time
	CreatedAt       time.Time
}

// EmbeddingText はEmbedding対象のテキストを返す
func (e *ExerciseLog) EmbeddingText() string {
	if strings.TrimSpace(e.Notes) == "" {
		return e.Activity
	}
	return e.Activity + ": " + e.Notes
}

// DoseSummary は期間内の服薬実績の集計を表します
type DoseSummary struct {
	MedicationID   uuid.UUID
	MedicationName string
	ScheduledDoses int
	TakenDoses     int
	MissedDoses    int
}

// ActiveUser はインサイト自動生成の対象ユーザを表します
type ActiveUser struct {
	UserID    uuid.UUID
	PatientID uuid.UUID
}
