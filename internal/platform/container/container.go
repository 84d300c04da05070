package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	analystapp "github.com/jinford/health-rag/internal/module/analyst/application"
	backfillapp "github.com/jinford/health-rag/internal/module/backfill/application"
	chatpg "github.com/jinford/health-rag/internal/module/chat/adapter/pg"
	chatapp "github.com/jinford/health-rag/internal/module/chat/application"
	documentapp "github.com/jinford/health-rag/internal/module/document/application"
	insightpg "github.com/jinford/health-rag/internal/module/insight/adapter/pg"
	insightapp "github.com/jinford/health-rag/internal/module/insight/application"
	llmadapter "github.com/jinford/health-rag/internal/module/llm/adapter"
	llmdomain "github.com/jinford/health-rag/internal/module/llm/domain"
	recordspg "github.com/jinford/health-rag/internal/module/records/adapter/pg"
	searchpg "github.com/jinford/health-rag/internal/module/search/adapter/pg"
	searchapp "github.com/jinford/health-rag/internal/module/search/application"
	searchdomain "github.com/jinford/health-rag/internal/module/search/domain"
	"github.com/jinford/health-rag/internal/platform/database"
	"github.com/jinford/health-rag/pkg/config"
)

// Container はアプリケーションの依存関係を保持する。
// 構築時にすべての外部設定（APIキー、しきい値）が解決され、
// 構築に成功した時点で各コンポーネントは利用可能な状態にある。
type Container struct {
	Logger   *slog.Logger
	Pool     *pgxpool.Pool
	Settings *config.Settings

	Embedder  llmdomain.Embedder
	Completer *llmadapter.GeminiClient

	SearchEngine *searchapp.Engine
	Analyst      *analystapp.Analyst
	Generator    *insightapp.Generator
	Scheduler    *insightapp.Scheduler
	Assistant    *chatapp.Assistant
	Pipeline     *documentapp.Pipeline
	BackfillJob  *backfillapp.Job

	Insights      *insightpg.InsightRepository
	Conversations *chatpg.ConversationRepository
	Messages      *chatpg.MessageRepository
	ChunkSearch   *searchpg.ChunkAdapter
}

// containerOptions は構築時の差し替え可能な依存
type containerOptions struct {
	logger   *slog.Logger
	embedder llmdomain.Embedder
}

// ContainerOption は Container 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder llmdomain.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// New は設定からコンテナを生成する
func New(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return NewWithPool(ctx, cfg, pool, opts...)
}

// NewWithPool は既存の接続プールを受け取りコンテナを生成する
func NewWithPool(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, opts ...ContainerOption) (*Container, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.logger

	settings := config.NewSettings(cfg)

	// Embedder (OpenAI互換)
	embedder := options.embedder
	if embedder == nil {
		embedderOpts := []llmadapter.EmbedderOption{
			llmadapter.WithEmbeddingModel(settings.EmbeddingModel()),
			llmadapter.WithEmbeddingDimension(settings.EmbeddingDimension()),
		}
		if cfg.OpenAI.BaseURL != "" {
			embedderOpts = append(embedderOpts, llmadapter.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		openaiEmbedder, err := llmadapter.NewOpenAIEmbedder(cfg.OpenAI.APIKey, embedderOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		embedder = openaiEmbedder
	}

	// チャット応答生成 (Gemini)
	completer, err := llmadapter.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize completion client: %w", err)
	}

	// レコードストア
	notes := recordspg.NewNoteRepository(pool)
	meds := recordspg.NewMedicationRepository(pool)
	vitals := recordspg.NewVitalRepository(pool)
	diet := recordspg.NewDietLogRepository(pool)
	exercise := recordspg.NewExerciseLogRepository(pool)
	users := recordspg.NewUserRepository(pool)

	// 検索アダプタ
	chunkSearch := searchpg.NewChunkAdapter(pool)
	adapters := []searchdomain.EntityAdapter{
		searchpg.NewNoteAdapter(pool),
		searchpg.NewMedicationAdapter(pool),
		searchpg.NewVitalAdapter(pool),
		searchpg.NewDietLogAdapter(pool),
		searchpg.NewExerciseLogAdapter(pool),
		chunkSearch,
		searchpg.NewInsightAdapter(pool),
	}
	engine := searchapp.NewEngine(embedder, settings, adapters, searchapp.WithEngineLogger(logger))

	// 分析とインサイト
	analyst := analystapp.NewAnalyst(meds, vitals, diet, exercise, analystapp.WithAnalystLogger(logger))
	insights := insightpg.NewInsightRepository(pool)
	generator := insightapp.NewGenerator(analyst, embedder, insights, insightapp.WithGeneratorLogger(logger))
	scheduler := insightapp.NewScheduler(generator, users, insights, settings,
		insightapp.WithGenerationSchedule(cfg.Scheduler.GenerationCron),
		insightapp.WithCleanupSchedule(cfg.Scheduler.CleanupCron),
		insightapp.WithSchedulerLogger(logger),
	)

	// チャット
	conversations := chatpg.NewConversationRepository(pool)
	messages := chatpg.NewMessageRepository(pool)
	assistant := chatapp.NewAssistant(engine, completer, conversations, messages, chatapp.RecordReaders{
		Notes:       notes,
		Medications: meds,
		Vitals:      vitals,
		Diet:        diet,
		Exercise:    exercise,
	}, chatapp.WithAssistantLogger(logger))

	// ドキュメントパイプライン
	txp := database.NewTransactionProvider(pool)
	pipeline := documentapp.NewPipeline(
		documentapp.NewChunker(),
		embedder,
		txp,
		chunkSearch,
		documentapp.WithPipelineLogger(logger),
	)

	// バックフィル
	backfillJob := backfillapp.NewJob(embedder, notes, meds, vitals, diet, exercise, backfillapp.WithJobLogger(logger))

	return &Container{
		Logger:        logger,
		Pool:          pool,
		Settings:      settings,
		Embedder:      embedder,
		Completer:     completer,
		SearchEngine:  engine,
		Analyst:       analyst,
		Generator:     generator,
		Scheduler:     scheduler,
		Assistant:     assistant,
		Pipeline:      pipeline,
		BackfillJob:   backfillJob,
		Insights:      insights,
		Conversations: conversations,
		Messages:      messages,
		ChunkSearch:   chunkSearch,
	}, nil
}

// Close はコンテナが保持するリソースを解放する
func (c *Container) Close() {
	if c.Completer != nil {
		if err := c.Completer.Close(); err != nil {
			c.Logger.Warn("failed to close completion client", "error", err)
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
