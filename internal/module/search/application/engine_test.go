package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	llmdomain "github.com/jinford/health-rag/internal/module/llm/domain"
	"github.com/jinford/health-rag/internal/module/search/domain"
	"github.com/jinford/health-rag/pkg/config"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder はテスト用のEmbedderスタブ
type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int {
	return len(s.vector)
}

// stubAdapter はテスト用のEntityAdapterスタブ
type stubAdapter struct {
	kind    domain.EntityKind
	results []*domain.SearchResult
	err     error
	calls   int
}

func (s *stubAdapter) Kind() domain.EntityKind {
	return s.kind
}

func (s *stubAdapter) Search(ctx context.Context, queryVector []float32, patientID mo.Option[uuid.UUID], threshold float64, limit int) ([]*domain.SearchResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	return config.NewSettings(&config.Config{
		OpenAI: config.OpenAIConfig{
			EmbeddingModel:     "text-embedding-3-small",
			EmbeddingDimension: 3,
		},
		Search: config.SearchConfig{
			DefaultThreshold: 0.7,
			DefaultLimit:     10,
		},
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func result(kind domain.EntityKind, similarity float64) *domain.SearchResult {
	return &domain.SearchResult{
		EntityID:   uuid.New(),
		EntityKind: kind,
		Content:    "content",
		Similarity: similarity,
	}
}

func TestEngine_SearchAll_MergesAndRanksAcrossAdapters(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	notes := &stubAdapter{kind: domain.KindNotes, results: []*domain.SearchResult{
		result(domain.KindNotes, 0.92),
		result(domain.KindNotes, 0.71),
	}}
	meds := &stubAdapter{kind: domain.KindMedications, results: []*domain.SearchResult{
		result(domain.KindMedications, 0.88),
	}}

	engine := NewEngine(embedder, testSettings(t), []domain.EntityAdapter{notes, meds}, WithEngineLogger(testLogger()))

	results, err := engine.SearchAll(context.Background(), SearchAllParams{Query: "blood pressure"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// 類似度の降順
	assert.Equal(t, 0.92, results[0].Similarity)
	assert.Equal(t, 0.88, results[1].Similarity)
	assert.Equal(t, 0.71, results[2].Similarity)

	// クエリのEmbeddingは一度だけ
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 1, notes.calls)
	assert.Equal(t, 1, meds.calls)
}

func TestEngine_SearchAll_KindFilterRunsSingleAdapter(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	notes := &stubAdapter{kind: domain.KindNotes, results: []*domain.SearchResult{result(domain.KindNotes, 0.9)}}
	meds := &stubAdapter{kind: domain.KindMedications, results: []*domain.SearchResult{result(domain.KindMedications, 0.95)}}

	engine := NewEngine(embedder, testSettings(t), []domain.EntityAdapter{notes, meds}, WithEngineLogger(testLogger()))

	results, err := engine.SearchAll(context.Background(), SearchAllParams{
		Query: "aspirin",
		Kind:  mo.Some(domain.KindMedications),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.KindMedications, results[0].EntityKind)
	assert.Equal(t, 0, notes.calls)
	assert.Equal(t, 1, meds.calls)
}

func TestEngine_SearchAll_UnknownKindFails(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{0.1}}
	engine := NewEngine(embedder, testSettings(t), []domain.EntityAdapter{}, WithEngineLogger(testLogger()))

	_, err := engine.SearchAll(context.Background(), SearchAllParams{
		Query: "anything",
		Kind:  mo.Some(domain.EntityKind("bogus")),
	})
	assert.ErrorIs(t, err, llmdomain.ErrInvalidInput)
}

func TestEngine_SearchAll_SkipsFailedAdapter(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	notes := &stubAdapter{kind: domain.KindNotes, err: errors.New("connection refused")}
	meds := &stubAdapter{kind: domain.KindMedications, results: []*domain.SearchResult{
		result(domain.KindMedications, 0.8),
	}}

	engine := NewEngine(embedder, testSettings(t), []domain.EntityAdapter{notes, meds}, WithEngineLogger(testLogger()))

	results, err := engine.SearchAll(context.Background(), SearchAllParams{Query: "metformin"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.KindMedications, results[0].EntityKind)
}

func TestEngine_SearchAll_EmbedFailureFailsWholeSearch(t *testing.T) {
	embedder := &stubEmbedder{err: llmdomain.ErrProviderUnavailable}
	notes := &stubAdapter{kind: domain.KindNotes}

	engine := NewEngine(embedder, testSettings(t), []domain.EntityAdapter{notes}, WithEngineLogger(testLogger()))

	_, err := engine.SearchAll(context.Background(), SearchAllParams{Query: "sleep"})
	assert.ErrorIs(t, err, llmdomain.ErrProviderUnavailable)
	assert.Equal(t, 0, notes.calls)
}

func TestEngine_SearchAll_EmptyQueryRejected(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{0.1}}
	engine := NewEngine(embedder, testSettings(t), []domain.EntityAdapter{}, WithEngineLogger(testLogger()))

	_, err := engine.SearchAll(context.Background(), SearchAllParams{Query: "   "})
	assert.ErrorIs(t, err, llmdomain.ErrInvalidInput)
	assert.Equal(t, 0, embedder.calls)
}

func TestEngine_SearchAll_TruncatesToLimit(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	notes := &stubAdapter{kind: domain.KindNotes, results: []*domain.SearchResult{
		result(domain.KindNotes, 0.9),
		result(domain.KindNotes, 0.85),
		result(domain.KindNotes, 0.8),
	}}

	engine := NewEngine(embedder, testSettings(t), []domain.EntityAdapter{notes}, WithEngineLogger(testLogger()))

	results, err := engine.SearchAll(context.Background(), SearchAllParams{
		Query: "diet",
		Limit: mo.Some(2),
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 0.9, results[0].Similarity)
}
