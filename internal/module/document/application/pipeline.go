package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jinford/health-rag/internal/module/document/domain"
	llmdomain "github.com/jinford/health-rag/internal/module/llm/domain"
	searchdomain "github.com/jinford/health-rag/internal/module/search/domain"
	"github.com/jinford/health-rag/internal/platform/database"
)

const (
	// embedBatchSize はチャンクEmbeddingの1バッチあたりの上限
	embedBatchSize = 100

	// answerThreshold は質問応答時の類似度の下限
	answerThreshold = 0.6
	// answerLimit は質問応答時に取得するチャンク数の上限
	answerLimit = 5
	// answerExcerptLength は回答本文に使う先頭抜粋の長さ
	answerExcerptLength = 500
	// sourceExcerptLength は出典として返すチャンク抜粋の長さ
	sourceExcerptLength = 200

	notFoundAnswer = "No relevant information was found in this document."
)

// ChunkSearcher は単一ドキュメントに限定したチャンク類似検索を提供する
type ChunkSearcher interface {
	SearchByDocument(ctx context.Context, documentID uuid.UUID, queryVector []float32, threshold float64, limit int) ([]*searchdomain.SearchResult, error)
}

// Pipeline はドキュメントの分割・Embedding・質問応答を担う
type Pipeline struct {
	chunker  *Chunker
	embedder llmdomain.Embedder
	txp      *database.TransactionProvider
	searcher ChunkSearcher
	logger   *slog.Logger
}

// PipelineOption は Pipeline のオプション設定
type PipelineOption func(*Pipeline)

// WithPipelineLogger は Pipeline にロガーを設定する
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline は新しいPipelineを作成する
func NewPipeline(chunker *Chunker, embedder llmdomain.Embedder, txp *database.TransactionProvider, searcher ChunkSearcher, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		chunker:  chunker,
		embedder: embedder,
		txp:      txp,
		searcher: searcher,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Process はドキュメントを分割してEmbeddingを計算し、チャンク集合を
// 原子的に置き換える（既存チャンクの全削除と新チャンクの挿入を同一
// トランザクションで行う）。保存したチャンク数を返す。
func (p *Pipeline) Process(ctx context.Context, documentID, ownerID uuid.UUID, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%w: document text is required", llmdomain.ErrInvalidInput)
	}

	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: document produced no chunks", llmdomain.ErrInvalidInput)
	}

	// チャンク本文はトリム済み・非空なので、バッチ結果は入力と同順で対応する
	vectors := make([][]float32, 0, len(chunks))
	for offset := 0; offset < len(chunks); offset += embedBatchSize {
		end := offset + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-offset)
		for _, chunk := range chunks[offset:end] {
			texts = append(texts, chunk.Content)
		}
		batch, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunks of document %s: %w", documentID, err)
		}
		vectors = append(vectors, batch...)
	}

	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch for document %s: got %d, want %d", documentID, len(vectors), len(chunks))
	}

	_, err := database.Transact(ctx, p.txp, func(a *database.Adapter) (struct{}, error) {
		if err := a.Chunks.DeleteByDocument(ctx, documentID); err != nil {
			return struct{}{}, err
		}
		for i, chunk := range chunks {
			dc := &domain.DocumentChunk{
				ID:         uuid.New(),
				DocumentID: documentID,
				OwnerID:    ownerID,
				Index:      chunk.Index,
				Content:    chunk.Content,
				TokenCount: chunk.TokenCount,
				StartChar:  chunk.StartChar,
				EndChar:    chunk.EndChar,
			}
			if err := a.Chunks.Insert(ctx, dc, vectors[i]); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return 0, err
	}

	p.logger.Info("document processed",
		"documentId", documentID,
		"chunks", len(chunks),
	)

	return len(chunks), nil
}

// AnswerQuestion は単一ドキュメントのチャンクに対する類似検索で質問に答える。
// 該当チャンクがない場合は出典なしの定型回答を返す。回答本文は最上位チャンク
// の先頭抜粋で、生成モデルによる再構成は行わない。
func (p *Pipeline) AnswerQuestion(ctx context.Context, documentID uuid.UUID, question string) (*domain.DocumentAnswer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", llmdomain.ErrInvalidInput)
	}

	queryVector, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	results, err := p.searcher.SearchByDocument(ctx, documentID, queryVector, answerThreshold, answerLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search document chunks: %w", err)
	}

	if len(results) == 0 {
		return &domain.DocumentAnswer{Answer: notFoundAnswer}, nil
	}

	sources := make([]domain.AnswerSource, 0, len(results))
	for _, res := range results {
		chunkIndex := 0
		if v, ok := res.Metadata["chunkIndex"].(int); ok {
			chunkIndex = v
		}
		sources = append(sources, domain.AnswerSource{
			ChunkID:    res.EntityID,
			ChunkIndex: chunkIndex,
			Excerpt:    excerpt(res.Content, sourceExcerptLength),
			Similarity: res.Similarity,
		})
	}

	return &domain.DocumentAnswer{
		Answer:  excerpt(results[0].Content, answerExcerptLength),
		Sources: sources,
	}, nil
}

func excerpt(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
