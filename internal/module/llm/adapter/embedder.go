package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinford/health-rag/internal/module/llm/domain"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトモデル
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimension はOpenAI推奨のデフォルト次元
	DefaultEmbeddingDimension = 1536
	// MaxBatchSize はバッチ処理の最大サイズ（OpenAI APIは最大100件）
	MaxBatchSize = 100

	// altProviderKeyPrefix はこのプレフィックスを持つAPIキーを互換プロバイダに振り分ける
	altProviderKeyPrefix = "sk-vec-"
	// altProviderBaseURL は互換プロバイダのベースURL
	altProviderBaseURL = "https://api.vectorizer.dev/v1"
)

// OpenAIEmbedder はOpenAI APIを使用したEmbedder実装。
// APIキーのプレフィックスで互換エンドポイントへのルーティングを判定する。
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

type embedderOptions struct {
	model     string
	dimension int
	baseURL   string
}

// EmbedderOption は OpenAIEmbedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		o.model = model
	}
}

// WithEmbeddingDimension はベクトル次元を上書きする
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithBaseURL はエンドポイントのベースURLを明示的に指定する（キープレフィックス判定より優先）
func WithBaseURL(baseURL string) EmbedderOption {
	return func(o *embedderOptions) {
		o.baseURL = baseURL
	}
}

// NewOpenAIEmbedder は新しいOpenAIEmbedderを作成します
func NewOpenAIEmbedder(apiKey string, opts ...EmbedderOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, domain.ErrAPIKeyNotSet
	}

	options := embedderOptions{
		model:     DefaultEmbeddingModel,
		dimension: DefaultEmbeddingDimension,
	}
	for _, opt := range opts {
		opt(&options)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := resolveBaseURL(apiKey, options.baseURL); baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}

	return &OpenAIEmbedder{
		client:    openai.NewClient(clientOpts...),
		model:     options.model,
		dimension: options.dimension,
	}, nil
}

// resolveBaseURL はベースURLを決定します。
// 明示指定があればそれを使い、なければキープレフィックスで互換プロバイダを判定する。
func resolveBaseURL(apiKey, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if strings.HasPrefix(apiKey, altProviderKeyPrefix) {
		return altProviderBaseURL
	}
	return ""
}

// Embed はテキストからEmbeddingベクトルを生成する
// domain.Embedderインターフェースを実装
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrInvalidInput)
	}

	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings generated", domain.ErrProviderUnavailable)
	}

	return embeddings[0], nil
}

// EmbedBatch はバッチでEmbeddingを生成します（最大100件）。
// 空白のみのエントリはプロバイダ呼び出し前に除外される。
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	filtered := make([]string, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) != "" {
			filtered = append(filtered, text)
		}
	}

	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: no non-empty texts provided", domain.ErrInvalidInput)
	}

	if len(filtered) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch size exceeds maximum of %d", domain.ErrInvalidInput, MaxBatchSize)
	}

	// リクエストパラメータを作成
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}

	// Input を設定（単一または配列）
	if len(filtered) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(filtered[0]),
		}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: filtered,
		}
	}

	// dimensionパラメータを追加（text-embedding-3-smallなどで有効）
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	// OpenAI Embeddings APIを呼び出し
	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	// レスポンスからベクトルを抽出
	var embeddings [][]float32
	for _, data := range resp.Data {
		// float64からfloat32に変換
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		embeddings = append(embeddings, vector)
	}

	return embeddings, nil
}

// Dimension はEmbeddingベクトルの次元数を返す
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// ModelName はモデル名を返す
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// インターフェース実装の確認
var _ domain.Embedder = (*OpenAIEmbedder)(nil)
