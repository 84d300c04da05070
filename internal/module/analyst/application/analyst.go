package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/health-rag/internal/module/analyst/domain"
	llmdomain "github.com/jinford/health-rag/internal/module/llm/domain"
	recordsdomain "github.com/jinford/health-rag/internal/module/records/domain"
	"github.com/samber/mo"
)

const (
	// defaultWindowDays は期間未指定時の分析対象日数
	defaultWindowDays = 30

	// 服薬遵守率の傾向分類しきい値
	adherenceStableMin    = 90.0
	adherenceImprovingMin = 75.0

	// バイタル推移の変化率しきい値（%）
	trendChangeThreshold = 5.0

	// リスク要因の固定ルールしきい値
	missedDosesRiskThreshold  = 10
	systolicRiskThreshold     = 140.0
	weeklyExerciseGoalMinutes = 150.0
)

const (
	lowAdherenceRecommendation   = "Your medication adherence is low. Consider setting reminders to take doses on time."
	startLoggingMealsMessage     = "No meal data logged. Start logging meals to get nutrition insights."
	weeklyExerciseGoalMessage    = "Aim for at least 150 minutes of exercise per week."
	missedDosesRecommendation    = "Review your medication schedule with your healthcare provider."
	hypertensionRecommendation   = "Monitor blood pressure regularly and consult your doctor about elevated readings."
)

// Analyst は生レコードから統計的な健康分析を行う。
// Embeddingは一切使わず、レコードストアを直接読む。
type Analyst struct {
	meds     recordsdomain.MedicationRepository
	vitals   recordsdomain.VitalRepository
	diet     recordsdomain.DietLogRepository
	exercise recordsdomain.ExerciseLogRepository
	logger   *slog.Logger
}

// AnalystOption は Analyst のオプション設定
type AnalystOption func(*Analyst)

// WithAnalystLogger は Analyst にロガーを設定する
func WithAnalystLogger(logger *slog.Logger) AnalystOption {
	return func(a *Analyst) {
		a.logger = logger
	}
}

// NewAnalyst は新しいAnalystを作成する
func NewAnalyst(
	meds recordsdomain.MedicationRepository,
	vitals recordsdomain.VitalRepository,
	diet recordsdomain.DietLogRepository,
	exercise recordsdomain.ExerciseLogRepository,
	opts ...AnalystOption,
) *Analyst {
	a := &Analyst{
		meds:     meds,
		vitals:   vitals,
		diet:     diet,
		exercise: exercise,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// AnalyzeParams は分析のパラメータを表す
type AnalyzeParams struct {
	PatientID uuid.UUID
	Start     mo.Option[time.Time]
	End       mo.Option[time.Time]
}

// Analyze は期間内のレコードから服薬遵守・バイタル推移・生活習慣・リスク要因を
// 計算する。期間未指定時は直近30日。4つの計算は並行に実行され、個々の失敗は
// 安全なデフォルト値に縮退する（分析全体は失敗しない）。
func (a *Analyst) Analyze(ctx context.Context, params AnalyzeParams) (*domain.HealthAnalysisResult, error) {
	end := params.End.OrElse(time.Now())
	start := params.Start.OrElse(end.AddDate(0, 0, -defaultWindowDays))
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date %s is before start date %s", llmdomain.ErrInvalidInput, end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	result := &domain.HealthAnalysisResult{
		PatientID:   params.PatientID,
		PeriodStart: start,
		PeriodEnd:   end,
	}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		result.Adherence = a.computeAdherence(ctx, params.PatientID, start, end)
	}()
	go func() {
		defer wg.Done()
		result.VitalTrends = a.computeVitalTrends(ctx, params.PatientID, start, end)
	}()
	go func() {
		defer wg.Done()
		result.Lifestyle = a.computeLifestyle(ctx, params.PatientID, start, end)
	}()
	go func() {
		defer wg.Done()
		result.RiskFactors = a.computeRiskFactors(ctx, params.PatientID, start, end)
	}()

	wg.Wait()

	return result, nil
}

// computeAdherence は薬ごとの遵守率と全体平均を計算する。
// 期間内に予定服用が1回もない薬は100%として扱う（未知扱いにしない）。
func (a *Analyst) computeAdherence(ctx context.Context, patientID uuid.UUID, from, to time.Time) domain.AdherenceSummary {
	summaries, err := a.meds.DoseSummaries(ctx, patientID, from, to)
	if err != nil {
		a.logger.Warn("failed to load dose summaries, degrading to defaults", "patientId", patientID, "error", err)
		return domain.AdherenceSummary{OverallRate: 0, Trend: domain.AdherenceStable}
	}

	if len(summaries) == 0 {
		return domain.AdherenceSummary{OverallRate: 100, Trend: domain.AdherenceStable}
	}

	medications := make([]domain.MedicationAdherence, 0, len(summaries))
	var total float64
	for _, s := range summaries {
		rate := 100.0
		if s.ScheduledDoses > 0 {
			rate = float64(s.TakenDoses) / float64(s.ScheduledDoses) * 100
		}
		total += rate
		medications = append(medications, domain.MedicationAdherence{
			MedicationID:   s.MedicationID,
			MedicationName: s.MedicationName,
			AdherenceRate:  rate,
			MissedDoses:    s.MissedDoses,
		})
	}

	overall := total / float64(len(summaries))

	var recommendations []string
	if overall < adherenceImprovingMin {
		recommendations = append(recommendations, lowAdherenceRecommendation)
	}

	return domain.AdherenceSummary{
		OverallRate:     overall,
		Trend:           classifyAdherenceLevel(overall),
		Medications:     medications,
		Recommendations: recommendations,
	}
}

// classifyAdherenceLevel は全体平均を静的なしきい値で分類する。
// 2期間の比較ではなく平均のスナップショットによる粗い分類である。
func classifyAdherenceLevel(overall float64) domain.AdherenceTrend {
	switch {
	case overall >= adherenceStableMin:
		return domain.AdherenceStable
	case overall >= adherenceImprovingMin:
		return domain.AdherenceImproving
	default:
		return domain.AdherenceDeclining
	}
}

// computeVitalTrends は種別ごとに前半・後半の平均を比較して推移を分類する。
// 正の測定値がひとつもない種別は結果から除外する。
func (a *Analyst) computeVitalTrends(ctx context.Context, patientID uuid.UUID, from, to time.Time) []domain.VitalTrend {
	readings, err := a.vitals.ListByPatientRange(ctx, patientID, from, to)
	if err != nil {
		a.logger.Warn("failed to load vitals, degrading to defaults", "patientId", patientID, "error", err)
		return nil
	}

	byKind := make(map[recordsdomain.VitalKind][]*recordsdomain.VitalMeasurement)
	for _, r := range readings {
		if r.Value <= 0 {
			continue
		}
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}

	kinds := make([]recordsdomain.VitalKind, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	trends := make([]domain.VitalTrend, 0, len(kinds))
	for _, kind := range kinds {
		group := byKind[kind]
		sort.Slice(group, func(i, j int) bool { return group[i].MeasuredAt.Before(group[j].MeasuredAt) })

		var sum float64
		for _, r := range group {
			sum += r.Value
		}
		avg := sum / float64(len(group))

		direction := classifyDirection(group)
		trends = append(trends, domain.VitalTrend{
			Kind:         kind,
			Direction:    direction,
			AverageValue: avg,
			ConcernLevel: classifyConcern(kind, avg, direction),
		})
	}

	return trends
}

// classifyDirection は測定列を時系列で前半・後半に分け、平均の変化率が
// ±5%を超えるかで推移方向を判定する
func classifyDirection(group []*recordsdomain.VitalMeasurement) domain.TrendDirection {
	if len(group) < 2 {
		return domain.TrendStable
	}

	mid := len(group) / 2
	firstMean := meanValue(group[:mid])
	secondMean := meanValue(group[mid:])
	if firstMean == 0 {
		return domain.TrendStable
	}

	change := (secondMean - firstMean) / firstMean * 100
	switch {
	case change > trendChangeThreshold:
		return domain.TrendIncreasing
	case change < -trendChangeThreshold:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

func meanValue(group []*recordsdomain.VitalMeasurement) float64 {
	if len(group) == 0 {
		return 0
	}
	var sum float64
	for _, r := range group {
		sum += r.Value
	}
	return sum / float64(len(group))
}

// classifyConcern は種別ごとの固定しきい値テーブルで懸念度を判定する
func classifyConcern(kind recordsdomain.VitalKind, avg float64, direction domain.TrendDirection) domain.ConcernLevel {
	switch kind {
	case recordsdomain.VitalBloodPressure:
		if avg > 140 {
			return domain.ConcernHigh
		}
		if avg > 130 {
			return domain.ConcernMedium
		}
	case recordsdomain.VitalGlucose:
		if avg > 180 {
			return domain.ConcernHigh
		}
		if avg > 140 {
			return domain.ConcernMedium
		}
	case recordsdomain.VitalWeight:
		if direction == domain.TrendIncreasing {
			return domain.ConcernMedium
		}
	}
	return domain.ConcernLow
}

// computeLifestyle は食事と運動の平均値を計算する。
// 平均の分母は正の値を持つ記録の件数で、該当がなければ平均は0。
func (a *Analyst) computeLifestyle(ctx context.Context, patientID uuid.UUID, from, to time.Time) domain.LifestyleSummary {
	summary := domain.LifestyleSummary{}

	dietLogs, err := a.diet.ListByPatientRange(ctx, patientID, from, to)
	if err != nil {
		a.logger.Warn("failed to load diet logs, degrading to defaults", "patientId", patientID, "error", err)
		dietLogs = nil
	}
	var calorieSum, calorieCount float64
	for _, log := range dietLogs {
		if log.Calories > 0 {
			calorieSum += float64(log.Calories)
			calorieCount++
		}
	}
	if calorieCount > 0 {
		summary.AverageCalories = calorieSum / calorieCount
	}

	exerciseLogs, err := a.exercise.ListByPatientRange(ctx, patientID, from, to)
	if err != nil {
		a.logger.Warn("failed to load exercise logs, degrading to defaults", "patientId", patientID, "error", err)
		exerciseLogs = nil
	}
	var minuteSum, minuteCount, totalMinutes float64
	for _, log := range exerciseLogs {
		if log.DurationMinutes > 0 {
			minuteSum += float64(log.DurationMinutes)
			minuteCount++
			totalMinutes += float64(log.DurationMinutes)
		}
	}
	if minuteCount > 0 {
		summary.AverageExerciseMinutes = minuteSum / minuteCount
	}

	if summary.AverageCalories == 0 {
		summary.Recommendations = append(summary.Recommendations, startLoggingMealsMessage)
	}

	weeks := to.Sub(from).Hours() / (24 * 7)
	if weeks < 1 {
		weeks = 1
	}
	if totalMinutes/weeks < weeklyExerciseGoalMinutes {
		summary.Recommendations = append(summary.Recommendations, weeklyExerciseGoalMessage)
	}

	return summary
}

// computeRiskFactors は固定ルールでリスク要因を抽出する。
// スコアリングモデルではなく、追加可能なルール表である。
func (a *Analyst) computeRiskFactors(ctx context.Context, patientID uuid.UUID, from, to time.Time) []domain.RiskFactor {
	var risks []domain.RiskFactor

	summaries, err := a.meds.DoseSummaries(ctx, patientID, from, to)
	if err != nil {
		a.logger.Warn("failed to load dose summaries for risk analysis, degrading to defaults", "patientId", patientID, "error", err)
	} else {
		totalMissed := 0
		for _, s := range summaries {
			totalMissed += s.MissedDoses
		}
		if totalMissed > missedDosesRiskThreshold {
			risks = append(risks, domain.RiskFactor{
				Type:           "medication",
				Severity:       domain.RiskHigh,
				Description:    fmt.Sprintf("%d missed doses in the analysis period", totalMissed),
				Recommendation: missedDosesRecommendation,
			})
		}
	}

	readings, err := a.vitals.ListByPatientRange(ctx, patientID, from, to)
	if err != nil {
		a.logger.Warn("failed to load vitals for risk analysis, degrading to defaults", "patientId", patientID, "error", err)
	} else {
		var systolicSum, systolicCount float64
		for _, r := range readings {
			if r.Kind == recordsdomain.VitalBloodPressure && r.Value > 0 {
				systolicSum += r.Value
				systolicCount++
			}
		}
		if systolicCount > 0 && systolicSum/systolicCount > systolicRiskThreshold {
			risks = append(risks, domain.RiskFactor{
				Type:           "hypertension",
				Severity:       domain.RiskMedium,
				Description:    fmt.Sprintf("average systolic blood pressure %.0f exceeds 140", systolicSum/systolicCount),
				Recommendation: hypertensionRecommendation,
			})
		}
	}

	return risks
}
