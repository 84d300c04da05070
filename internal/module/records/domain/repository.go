package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EmbeddingField はEmbeddingを保持するカラムの識別子。
// 食事記録のように1レコードに複数のEmbedding対象フィールドがある場合に使用する。
type EmbeddingField string

const (
	FieldContent   EmbeddingField = "content"
	FieldFoodItems EmbeddingField = "food_items"
	FieldNotes     EmbeddingField = "notes"
)

// EmbeddingTarget はEmbedding未設定レコードのバックフィル対象を表します
type EmbeddingTarget struct {
	ID    uuid.UUID
	Field EmbeddingField
	Text  string
}

// NoteRepository はノートの読み取りとEmbedding書き込みを提供します
type NoteRepository interface {
	ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Note, error)
	ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*EmbeddingTarget, error)
	SetEmbedding(ctx context.Context, id uuid.UUID, vector []float32) error
}

// MedicationRepository は処方薬の読み取りと服薬集計を提供します
type MedicationRepository interface {
	ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Medication, error)
	// DoseSummaries は期間内の薬ごとの服薬実績を集計する
	DoseSummaries(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*DoseSummary, error)
	ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*EmbeddingTarget, error)
	SetEmbedding(ctx context.Context, id uuid.UUID, vector []float32) error
}

// VitalRepository はバイタル測定値の読み取りを提供します
type VitalRepository interface {
	ListByPatientRange(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*VitalMeasurement, error)
	ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*VitalMeasurement, error)
	ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*EmbeddingTarget, error)
	SetEmbedding(ctx context.Context, id uuid.UUID, vector []float32) error
}

// DietLogRepository は食事記録の読み取りとフィールド別Embedding書き込みを提供します
type DietLogRepository interface {
	ListByPatientRange(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*DietLog, error)
	ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*DietLog, error)
	ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*EmbeddingTarget, error)
	SetEmbedding(ctx context.Context, id uuid.UUID, field EmbeddingField, vector []float32) error
}

// ExerciseLogRepository は運動記録の読み取りを提供します
type ExerciseLogRepository interface {
	ListByPatientRange(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*ExerciseLog, error)
	ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*ExerciseLog, error)
	ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*EmbeddingTarget, error)
	SetEmbedding(ctx context.Context, id uuid.UUID, vector []float32) error
}

// UserRepository はインサイト自動生成の対象ユーザ一覧を提供します
type UserRepository interface {
	ListActiveUsers(ctx context.Context) ([]*ActiveUser, error)
}
