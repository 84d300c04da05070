package application

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	analystapp "github.com/jinford/health-rag/internal/module/analyst/application"
	analystdomain "github.com/jinford/health-rag/internal/module/analyst/domain"
	"github.com/jinford/health-rag/internal/module/insight/domain"
	llmdomain "github.com/jinford/health-rag/internal/module/llm/domain"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	result *analystdomain.HealthAnalysisResult
	err    error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, params analystapp.AnalyzeParams) (*analystdomain.HealthAnalysisResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubEmbedder struct {
	vector    []float32
	lastInput string
	calls     int
	err       error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	s.lastInput = text
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func (s *stubEmbedder) Dimension() int {
	return len(s.vector)
}

type stubInsightRepo struct {
	created      []*domain.Insight
	deleted      int64
	deleteCalled bool
	createErr    error
}

func (s *stubInsightRepo) Create(ctx context.Context, insight *domain.Insight, embedding []float32) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, insight)
	return nil
}

func (s *stubInsightRepo) ListByUser(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]*domain.Insight, error) {
	return nil, nil
}

func (s *stubInsightRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (s *stubInsightRepo) Archive(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (s *stubInsightRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.deleteCalled = true
	return s.deleted, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func analysisWith(adherence analystdomain.AdherenceSummary, risks []analystdomain.RiskFactor) *analystdomain.HealthAnalysisResult {
	return &analystdomain.HealthAnalysisResult{
		PatientID:   uuid.New(),
		Adherence:   adherence,
		RiskFactors: risks,
	}
}

func TestGenerator_Generate_LowAdherenceInsight(t *testing.T) {
	analyzer := &stubAnalyzer{result: analysisWith(analystdomain.AdherenceSummary{
		OverallRate:     60,
		Trend:           analystdomain.AdherenceDeclining,
		Recommendations: []string{"set reminders"},
	}, nil)}
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2}}
	repo := &stubInsightRepo{}

	generator := NewGenerator(analyzer, embedder, repo, WithGeneratorLogger(discardLogger()))

	insight, err := generator.Generate(context.Background(), GenerateParams{
		Kind:      domain.KindMedicationAdherence,
		UserID:    uuid.New(),
		PatientID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, "Low Medication Adherence Detected", insight.Title)
	assert.Equal(t, confidenceLowAdherence, insight.Confidence)
	assert.Equal(t, domain.PriorityHigh, insight.Priority)
	assert.Equal(t, domain.CategoryMedication, insight.Category)
	assert.Equal(t, []string{"set reminders"}, insight.Recommendations)

	// タイトルと本文を連結したテキストがEmbeddingされ、行が保存される
	require.Len(t, repo.created, 1)
	assert.Equal(t, insight.Title+" "+insight.Content, embedder.lastInput)
}

func TestGenerator_Generate_GoodAdherenceIsOnTrack(t *testing.T) {
	analyzer := &stubAnalyzer{result: analysisWith(analystdomain.AdherenceSummary{
		OverallRate: 95,
		Trend:       analystdomain.AdherenceStable,
	}, nil)}
	embedder := &stubEmbedder{vector: []float32{0.1}}
	repo := &stubInsightRepo{}

	generator := NewGenerator(analyzer, embedder, repo, WithGeneratorLogger(discardLogger()))

	insight, err := generator.Generate(context.Background(), GenerateParams{
		Kind:      domain.KindMedicationAdherence,
		UserID:    uuid.New(),
		PatientID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Medication Adherence On Track", insight.Title)
	assert.Equal(t, domain.PriorityLow, insight.Priority)
}

func TestGenerator_Generate_AlertWithoutHighRiskSkips(t *testing.T) {
	analyzer := &stubAnalyzer{result: analysisWith(analystdomain.AdherenceSummary{OverallRate: 90}, []analystdomain.RiskFactor{
		{Type: "hypertension", Severity: analystdomain.RiskMedium},
	})}
	embedder := &stubEmbedder{vector: []float32{0.1}}
	repo := &stubInsightRepo{}

	generator := NewGenerator(analyzer, embedder, repo, WithGeneratorLogger(discardLogger()))

	_, err := generator.Generate(context.Background(), GenerateParams{
		Kind:      domain.KindAlert,
		UserID:    uuid.New(),
		PatientID: uuid.New(),
	})
	assert.ErrorIs(t, err, domain.ErrNoInsight)

	// スキップ時は何も保存されずEmbeddingも計算されない
	assert.Empty(t, repo.created)
	assert.Equal(t, 0, embedder.calls)
}

func TestGenerator_Generate_AlertWithHighRiskPersists(t *testing.T) {
	analyzer := &stubAnalyzer{result: analysisWith(analystdomain.AdherenceSummary{OverallRate: 50}, []analystdomain.RiskFactor{
		{Type: "medication", Severity: analystdomain.RiskHigh, Description: "12 missed doses in the analysis period", Recommendation: "review schedule"},
	})}
	embedder := &stubEmbedder{vector: []float32{0.1}}
	repo := &stubInsightRepo{}

	generator := NewGenerator(analyzer, embedder, repo, WithGeneratorLogger(discardLogger()))

	insight, err := generator.Generate(context.Background(), GenerateParams{
		Kind:      domain.KindAlert,
		UserID:    uuid.New(),
		PatientID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PriorityCritical, insight.Priority)
	assert.Equal(t, confidenceAlert, insight.Confidence)
	require.NotNil(t, insight.ExpiresAt)
	assert.True(t, insight.ExpiresAt.After(time.Now()))
	require.Len(t, repo.created, 1)
}

func TestGenerator_Generate_UnknownKindRejected(t *testing.T) {
	generator := NewGenerator(&stubAnalyzer{}, &stubEmbedder{}, &stubInsightRepo{}, WithGeneratorLogger(discardLogger()))

	_, err := generator.Generate(context.Background(), GenerateParams{
		Kind:      domain.InsightKind("bogus"),
		UserID:    uuid.New(),
		PatientID: uuid.New(),
	})
	assert.ErrorIs(t, err, llmdomain.ErrInvalidInput)
}

func TestGenerator_Generate_PriorityOverrideApplied(t *testing.T) {
	analyzer := &stubAnalyzer{result: analysisWith(analystdomain.AdherenceSummary{OverallRate: 95}, nil)}
	embedder := &stubEmbedder{vector: []float32{0.1}}
	repo := &stubInsightRepo{}

	generator := NewGenerator(analyzer, embedder, repo, WithGeneratorLogger(discardLogger()))

	insight, err := generator.Generate(context.Background(), GenerateParams{
		Kind:      domain.KindMedicationAdherence,
		UserID:    uuid.New(),
		PatientID: uuid.New(),
		Priority:  mo.Some(domain.PriorityCritical),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityCritical, insight.Priority)
}

func TestGenerator_Generate_EmbedFailureDoesNotPersist(t *testing.T) {
	analyzer := &stubAnalyzer{result: analysisWith(analystdomain.AdherenceSummary{OverallRate: 95}, nil)}
	embedder := &stubEmbedder{err: llmdomain.ErrProviderUnavailable}
	repo := &stubInsightRepo{}

	generator := NewGenerator(analyzer, embedder, repo, WithGeneratorLogger(discardLogger()))

	_, err := generator.Generate(context.Background(), GenerateParams{
		Kind:      domain.KindMedicationAdherence,
		UserID:    uuid.New(),
		PatientID: uuid.New(),
	})
	assert.ErrorIs(t, err, llmdomain.ErrProviderUnavailable)
	assert.Empty(t, repo.created)
}
