package application

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	llmdomain "github.com/jinford/health-rag/internal/module/llm/domain"
	searchdomain "github.com/jinford/health-rag/internal/module/search/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

type stubChunkSearcher struct {
	results []*searchdomain.SearchResult
	err     error
}

func (s *stubChunkSearcher) SearchByDocument(ctx context.Context, documentID uuid.UUID, queryVector []float32, threshold float64, limit int) ([]*searchdomain.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipeline_AnswerQuestion_NoMatchReturnsCannedAnswer(t *testing.T) {
	pipeline := NewPipeline(
		NewChunker(),
		&stubEmbedder{vector: []float32{0.1, 0.2}},
		nil,
		&stubChunkSearcher{},
		WithPipelineLogger(discardLogger()),
	)

	answer, err := pipeline.AnswerQuestion(context.Background(), uuid.New(), "What dosage was prescribed?")
	require.NoError(t, err)
	assert.Equal(t, notFoundAnswer, answer.Answer)
	assert.Empty(t, answer.Sources)
}

func TestPipeline_AnswerQuestion_TopChunkBecomesAnswer(t *testing.T) {
	top := &searchdomain.SearchResult{
		EntityID:   uuid.New(),
		EntityKind: searchdomain.KindDocumentChunks,
		Content:    "Amlodipine 5mg once daily was prescribed on discharge.",
		Similarity: 0.91,
		Metadata:   map[string]any{"chunkIndex": 2},
	}
	second := &searchdomain.SearchResult{
		EntityID:   uuid.New(),
		EntityKind: searchdomain.KindDocumentChunks,
		Content:    "Follow-up appointment scheduled in two weeks.",
		Similarity: 0.72,
		Metadata:   map[string]any{"chunkIndex": 5},
	}

	pipeline := NewPipeline(
		NewChunker(),
		&stubEmbedder{vector: []float32{0.1, 0.2}},
		nil,
		&stubChunkSearcher{results: []*searchdomain.SearchResult{top, second}},
		WithPipelineLogger(discardLogger()),
	)

	answer, err := pipeline.AnswerQuestion(context.Background(), uuid.New(), "What dosage was prescribed?")
	require.NoError(t, err)
	assert.Equal(t, top.Content, answer.Answer)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, 2, answer.Sources[0].ChunkIndex)
	assert.Equal(t, 0.91, answer.Sources[0].Similarity)
}

func TestPipeline_AnswerQuestion_EmptyQuestionRejected(t *testing.T) {
	pipeline := NewPipeline(
		NewChunker(),
		&stubEmbedder{vector: []float32{0.1}},
		nil,
		&stubChunkSearcher{},
		WithPipelineLogger(discardLogger()),
	)

	_, err := pipeline.AnswerQuestion(context.Background(), uuid.New(), "  ")
	assert.ErrorIs(t, err, llmdomain.ErrInvalidInput)
}

func TestPipeline_Process_EmptyTextRejected(t *testing.T) {
	pipeline := NewPipeline(
		NewChunker(),
		&stubEmbedder{vector: []float32{0.1}},
		nil,
		&stubChunkSearcher{},
		WithPipelineLogger(discardLogger()),
	)

	_, err := pipeline.Process(context.Background(), uuid.New(), uuid.New(), "   ")
	assert.ErrorIs(t, err, llmdomain.ErrInvalidInput)
}
