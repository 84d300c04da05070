package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	analystapp "github.com/jinford/health-rag/internal/module/analyst/application"
	analystdomain "github.com/jinford/health-rag/internal/module/analyst/domain"
	"github.com/jinford/health-rag/internal/module/insight/domain"
	llmdomain "github.com/jinford/health-rag/internal/module/llm/domain"
	"github.com/samber/mo"
)

const (
	lowAdherenceThreshold = 70.0

	confidenceLowAdherence = 85
	confidenceOnTrack      = 75
	confidenceTrend        = 70
	confidenceLifestyle    = 65
	confidenceAlert        = 90
	confidencePattern      = 60

	// アラートは短命で、クリーンアップの削除対象になる
	alertTTL = 7 * 24 * time.Hour
)

// HealthAnalyzer は統計分析を提供する
type HealthAnalyzer interface {
	Analyze(ctx context.Context, params analystapp.AnalyzeParams) (*analystdomain.HealthAnalysisResult, error)
}

// Generator は分析結果から型付きインサイトを組み立て、Embedding付きで永続化する
type Generator struct {
	analyzer HealthAnalyzer
	embedder llmdomain.Embedder
	repo     domain.InsightRepository
	logger   *slog.Logger
}

// GeneratorOption は Generator のオプション設定
type GeneratorOption func(*Generator)

// WithGeneratorLogger は Generator にロガーを設定する
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator は新しいGeneratorを作成する
func NewGenerator(analyzer HealthAnalyzer, embedder llmdomain.Embedder, repo domain.InsightRepository, opts ...GeneratorOption) *Generator {
	g := &Generator{
		analyzer: analyzer,
		embedder: embedder,
		repo:     repo,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// GenerateParams はインサイト生成のパラメータを表す
type GenerateParams struct {
	Kind      domain.InsightKind
	UserID    uuid.UUID
	PatientID uuid.UUID
	Priority  mo.Option[domain.Priority]
	Category  mo.Option[domain.Category]
}

// draft はビルダーが返す組み立て途中のインサイト
type draft struct {
	title           string
	content         string
	confidence      int
	priority        domain.Priority
	category        domain.Category
	recommendations []string
	expiresAt       *time.Time
}

// Generate は種別に応じたビルダーで分析結果からインサイトを組み立て、
// Embeddingを計算して永続化する。ビルダーが対象なしと判断した場合は
// ErrNoInsightを返し、何も保存しない。重複排除は行わない（同じ種別・患者で
// 繰り返し呼べばその都度新しい行ができる）。
func (g *Generator) Generate(ctx context.Context, params GenerateParams) (*domain.Insight, error) {
	if !params.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown insight kind: %s", llmdomain.ErrInvalidInput, params.Kind)
	}

	analysis, err := g.analyzer.Analyze(ctx, analystapp.AnalyzeParams{PatientID: params.PatientID})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze patient %s: %w", params.PatientID, err)
	}

	var d *draft
	switch params.Kind {
	case domain.KindMedicationAdherence:
		d = buildAdherenceInsight(analysis)
	case domain.KindHealthTrend:
		d = buildTrendInsight(analysis)
	case domain.KindRecommendation:
		d = buildRecommendationInsight(analysis)
	case domain.KindAlert:
		d = buildAlertInsight(analysis)
	case domain.KindPatternDetection:
		d = buildPatternInsight(analysis)
	}
	if d == nil {
		return nil, domain.ErrNoInsight
	}

	if p, ok := params.Priority.Get(); ok {
		d.priority = p
	}
	if c, ok := params.Category.Get(); ok {
		d.category = c
	}

	insight := &domain.Insight{
		ID:              uuid.New(),
		UserID:          params.UserID,
		PatientID:       params.PatientID,
		Kind:            params.Kind,
		Title:           d.title,
		Content:         d.content,
		Confidence:      d.confidence,
		Priority:        d.priority,
		Category:        d.category,
		Recommendations: d.recommendations,
		GeneratedAt:     time.Now(),
		ExpiresAt:       d.expiresAt,
	}

	embedding, err := g.embedder.Embed(ctx, insight.EmbeddingText())
	if err != nil {
		return nil, fmt.Errorf("failed to embed insight: %w", err)
	}

	if err := g.repo.Create(ctx, insight, embedding); err != nil {
		return nil, fmt.Errorf("failed to persist insight: %w", err)
	}

	g.logger.Info("insight generated",
		"insightId", insight.ID,
		"kind", insight.Kind,
		"patientId", insight.PatientID,
	)

	return insight, nil
}

func buildAdherenceInsight(analysis *analystdomain.HealthAnalysisResult) *draft {
	adherence := analysis.Adherence
	if adherence.OverallRate < lowAdherenceThreshold {
		return &draft{
			title:           "Low Medication Adherence Detected",
			content:         fmt.Sprintf("Overall medication adherence is %.1f%% over the last 30 days, which is below the recommended level. The current trend is %s.", adherence.OverallRate, adherence.Trend),
			confidence:      confidenceLowAdherence,
			priority:        domain.PriorityHigh,
			category:        domain.CategoryMedication,
			recommendations: adherence.Recommendations,
		}
	}
	return &draft{
		title:           "Medication Adherence On Track",
		content:         fmt.Sprintf("Overall medication adherence is %.1f%% over the last 30 days. The current trend is %s.", adherence.OverallRate, adherence.Trend),
		confidence:      confidenceOnTrack,
		priority:        domain.PriorityLow,
		category:        domain.CategoryMedication,
		recommendations: adherence.Recommendations,
	}
}

func buildTrendInsight(analysis *analystdomain.HealthAnalysisResult) *draft {
	if len(analysis.VitalTrends) == 0 {
		return &draft{
			title:      "No Significant Health Trends",
			content:    "No vital sign readings were recorded in the analysis period, so no trends could be identified.",
			confidence: confidenceTrend,
			priority:   domain.PriorityLow,
			category:   domain.CategoryVitals,
		}
	}

	priority := domain.PriorityLow
	lines := make([]string, 0, len(analysis.VitalTrends))
	for _, trend := range analysis.VitalTrends {
		lines = append(lines, fmt.Sprintf("%s: %s (average %.1f, concern %s)", trend.Kind, trend.Direction, trend.AverageValue, trend.ConcernLevel))
		switch trend.ConcernLevel {
		case analystdomain.ConcernHigh:
			priority = domain.PriorityHigh
		case analystdomain.ConcernMedium:
			if priority == domain.PriorityLow {
				priority = domain.PriorityMedium
			}
		}
	}

	return &draft{
		title:      "Health Trend Summary",
		content:    "Vital sign trends over the analysis period: " + strings.Join(lines, "; ") + ".",
		confidence: confidenceTrend,
		priority:   priority,
		category:   domain.CategoryVitals,
	}
}

func buildRecommendationInsight(analysis *analystdomain.HealthAnalysisResult) *draft {
	recommendations := make([]string, 0, len(analysis.Lifestyle.Recommendations)+len(analysis.Adherence.Recommendations))
	recommendations = append(recommendations, analysis.Lifestyle.Recommendations...)
	recommendations = append(recommendations, analysis.Adherence.Recommendations...)

	content := fmt.Sprintf("Average daily intake is %.0f calories and average exercise session is %.0f minutes over the analysis period.", analysis.Lifestyle.AverageCalories, analysis.Lifestyle.AverageExerciseMinutes)

	return &draft{
		title:           "Lifestyle Recommendations",
		content:         content,
		confidence:      confidenceLifestyle,
		priority:        domain.PriorityMedium,
		category:        domain.CategoryLifestyle,
		recommendations: recommendations,
	}
}

// buildAlertInsight は高深刻度のリスク要因がある場合のみインサイトを作る。
// なければnilを返し、呼び出し側は保存をスキップする。
func buildAlertInsight(analysis *analystdomain.HealthAnalysisResult) *draft {
	var high []analystdomain.RiskFactor
	for _, risk := range analysis.RiskFactors {
		if risk.Severity == analystdomain.RiskHigh {
			high = append(high, risk)
		}
	}
	if len(high) == 0 {
		return nil
	}

	lines := make([]string, 0, len(high))
	recommendations := make([]string, 0, len(high))
	for _, risk := range high {
		lines = append(lines, risk.Description)
		if risk.Recommendation != "" {
			recommendations = append(recommendations, risk.Recommendation)
		}
	}

	expiresAt := time.Now().Add(alertTTL)
	return &draft{
		title:           "Health Alert",
		content:         "High severity risk factors detected: " + strings.Join(lines, "; ") + ".",
		confidence:      confidenceAlert,
		priority:        domain.PriorityCritical,
		category:        domain.CategoryGeneral,
		recommendations: recommendations,
		expiresAt:       &expiresAt,
	}
}

func buildPatternInsight(analysis *analystdomain.HealthAnalysisResult) *draft {
	var observations []string
	if analysis.Lifestyle.AverageExerciseMinutes > 0 {
		for _, trend := range analysis.VitalTrends {
			if trend.Direction != analystdomain.TrendStable {
				observations = append(observations, fmt.Sprintf("%s readings are %s while exercise is being logged", trend.Kind, trend.Direction))
			}
		}
	}

	content := "No notable cross-signal patterns were detected in the analysis period."
	if len(observations) > 0 {
		content = "Observed patterns: " + strings.Join(observations, "; ") + "."
	}

	return &draft{
		title:      "Pattern Detection",
		content:    content,
		confidence: confidencePattern,
		priority:   domain.PriorityLow,
		category:   domain.CategoryGeneral,
	}
}
