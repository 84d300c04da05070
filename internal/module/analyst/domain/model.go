package domain

import (
	"time"

	"github.com/google/uuid"
	recordsdomain "github.com/jinford/health-rag/internal/module/records/domain"
)

// AdherenceTrend は服薬遵守の傾向分類
type AdherenceTrend string

const (
	AdherenceStable    AdherenceTrend = "stable"
	AdherenceImproving AdherenceTrend = "improving"
	AdherenceDeclining AdherenceTrend = "declining"
)

// TrendDirection はバイタル値の推移方向
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// ConcernLevel はバイタル推移の懸念度
type ConcernLevel string

const (
	ConcernLow    ConcernLevel = "low"
	ConcernMedium ConcernLevel = "medium"
	ConcernHigh   ConcernLevel = "high"
)

// RiskSeverity はリスク要因の深刻度
type RiskSeverity string

const (
	RiskLow    RiskSeverity = "low"
	RiskMedium RiskSeverity = "medium"
	RiskHigh   RiskSeverity = "high"
)

// MedicationAdherence は1つの薬の期間内遵守状況を表す
type MedicationAdherence struct {
	MedicationID   uuid.UUID
	MedicationName string
	AdherenceRate  float64
	MissedDoses    int
}

// AdherenceSummary は服薬遵守の集計結果を表す。
// OverallRate は薬ごとの遵守率の単純平均（服用回数による重み付けはしない）。
type AdherenceSummary struct {
	OverallRate     float64
	Trend           AdherenceTrend
	Medications     []MedicationAdherence
	Recommendations []string
}

// VitalTrend は1種別のバイタルの推移を表す
type VitalTrend struct {
	Kind         recordsdomain.VitalKind
	Direction    TrendDirection
	AverageValue float64
	ConcernLevel ConcernLevel
}

// LifestyleSummary は食事・運動の集計結果を表す
type LifestyleSummary struct {
	AverageCalories        float64
	AverageExerciseMinutes float64
	Recommendations        []string
}

// RiskFactor は固定ルールから導出されたリスク要因を表す
type RiskFactor struct {
	Type           string
	Severity       RiskSeverity
	Description    string
	Recommendation string
}

// HealthAnalysisResult は1回の分析結果の集約。
// 永続化されず、呼び出しごとに生レコードから計算し直す。
type HealthAnalysisResult struct {
	PatientID   uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	Adherence   AdherenceSummary
	VitalTrends []VitalTrend
	Lifestyle   LifestyleSummary
	RiskFactors []RiskFactor
}
