package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	llmdomain "github.com/jinford/health-rag/internal/module/llm/domain"
	"github.com/jinford/health-rag/internal/module/search/domain"
	"github.com/jinford/health-rag/pkg/config"
	"github.com/samber/mo"
)

// DefaultLimit は件数未指定時の上限
const DefaultLimit = 10

// Engine は種別横断のセマンティック検索を提供する
type Engine struct {
	embedder llmdomain.Embedder
	adapters []domain.EntityAdapter
	settings *config.Settings
	logger   *slog.Logger
}

// EngineOption は Engine のオプション設定
type EngineOption func(*Engine)

// WithEngineLogger は Engine にロガーを設定する
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine は新しいEngineを作成する。
// アダプタの登録順は、類似度が同値の場合の結果順序（安定ソート）に影響する。
func NewEngine(embedder llmdomain.Embedder, settings *config.Settings, adapters []domain.EntityAdapter, opts ...EngineOption) *Engine {
	e := &Engine{
		embedder: embedder,
		adapters: adapters,
		settings: settings,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// SearchAllParams は種別横断検索のパラメータを表す
type SearchAllParams struct {
	Query     string
	PatientID mo.Option[uuid.UUID]
	Kind      mo.Option[domain.EntityKind]
	Threshold mo.Option[float64]
	Limit     mo.Option[int]
}

// SearchAll はクエリを一度だけEmbeddingし、対象アダプタへ並行にファンアウトして
// 結果をマージ・ランキングする。個々のアダプタの失敗は検索全体を失敗させず、
// ログに記録してスキップする（横断ビューは助言的であり、トランザクショナルではない）。
// クエリのEmbedding失敗は検索全体の失敗となる。
func (e *Engine) SearchAll(ctx context.Context, params SearchAllParams) ([]*domain.SearchResult, error) {
	// バリデーション
	if strings.TrimSpace(params.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", llmdomain.ErrInvalidInput)
	}

	// 対象アダプタの選択
	targets := e.adapters
	if kind, ok := params.Kind.Get(); ok {
		targets = nil
		for _, adapter := range e.adapters {
			if adapter.Kind() == kind {
				targets = []domain.EntityAdapter{adapter}
				break
			}
		}
		if targets == nil {
			return nil, fmt.Errorf("%w: unknown entity kind: %s", llmdomain.ErrInvalidInput, kind)
		}
	}

	// デフォルト値の設定
	threshold := params.Threshold.OrElse(e.settings.DefaultThreshold())
	limit := params.Limit.OrElse(e.settings.DefaultLimit())
	if limit <= 0 {
		limit = DefaultLimit
	}

	// クエリをEmbeddingに変換（検索全体で一度だけ）
	queryVector, err := e.embedder.Embed(ctx, params.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// アダプタへ並行にファンアウト
	type adapterResult struct {
		kind    domain.EntityKind
		results []*domain.SearchResult
		err     error
	}

	ch := make(chan adapterResult, len(targets))
	for _, adapter := range targets {
		go func(adapter domain.EntityAdapter) {
			results, err := adapter.Search(ctx, queryVector, params.PatientID, threshold, limit)
			ch <- adapterResult{kind: adapter.Kind(), results: results, err: err}
		}(adapter)
	}

	// 結果を待ってマージ（登録順ではなく完了順に届くが、最後に安定ソートする）
	merged := make([]*domain.SearchResult, 0, limit)
	for range targets {
		res := <-ch
		if res.err != nil {
			e.logger.Warn("entity adapter search failed, skipping",
				"kind", res.kind,
				"error", res.err,
			)
			continue
		}
		merged = append(merged, res.results...)
	}

	// 類似度の降順にランキングして上限で切り詰める
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	return merged, nil
}
