package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/health-rag/internal/module/chat/domain"
	llmdomain "github.com/jinford/health-rag/internal/module/llm/domain"
	recordsdomain "github.com/jinford/health-rag/internal/module/records/domain"
	searchapp "github.com/jinford/health-rag/internal/module/search/application"
	searchdomain "github.com/jinford/health-rag/internal/module/search/domain"
	"github.com/samber/mo"
)

const (
	// contextLimit は検索・直近レコードの各取得件数
	contextLimit = 5
	// sourceContentLimit は出典メタデータに残す本文の長さ
	sourceContentLimit = 200
)

// SearchEngine は種別横断のセマンティック検索を提供する
type SearchEngine interface {
	SearchAll(ctx context.Context, params searchapp.SearchAllParams) ([]*searchdomain.SearchResult, error)
}

// RecordReaders は直近レコードによるフォールバックコンテキストの取得元
type RecordReaders struct {
	Notes       recordsdomain.NoteRepository
	Medications recordsdomain.MedicationRepository
	Vitals      recordsdomain.VitalRepository
	Diet        recordsdomain.DietLogRepository
	Exercise    recordsdomain.ExerciseLogRepository
}

// Assistant は検索拡張生成によるチャットを提供する
type Assistant struct {
	engine        SearchEngine
	completer     llmdomain.Completer
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	records       RecordReaders
	logger        *slog.Logger
}

// AssistantOption は Assistant のオプション設定
type AssistantOption func(*Assistant)

// WithAssistantLogger は Assistant にロガーを設定する
func WithAssistantLogger(logger *slog.Logger) AssistantOption {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// NewAssistant は新しいAssistantを作成する
func NewAssistant(
	engine SearchEngine,
	completer llmdomain.Completer,
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	records RecordReaders,
	opts ...AssistantOption,
) *Assistant {
	a := &Assistant{
		engine:        engine,
		completer:     completer,
		conversations: conversations,
		messages:      messages,
		records:       records,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// ChatParams はチャット1ターンのパラメータを表す
type ChatParams struct {
	UserID         uuid.UUID
	PatientID      mo.Option[uuid.UUID]
	ConversationID mo.Option[uuid.UUID]
	Message        string
}

// ChatResult はチャット1ターンの結果を表す
type ChatResult struct {
	ConversationID uuid.UUID
	Message        string
	Sources        []*searchdomain.SearchResult
}

// Chat は1ターンのチャットを実行する。会話IDが未指定なら会話を新規作成し、
// メッセージ本文でセマンティック検索したコンテキストをプロンプトに埋め込んで
// 補完を1回だけ呼ぶ。本文が空で患者IDがある場合は検索を介さず直近レコードを
// コンテキストにする。補完の失敗はErrGenerationFailedとして返し、メッセージは
// 一切保存しない（部分書き込みなし）。
func (a *Assistant) Chat(ctx context.Context, params ChatParams) (*ChatResult, error) {
	message := strings.TrimSpace(params.Message)
	if message == "" && params.PatientID.IsAbsent() {
		return nil, fmt.Errorf("%w: message or patient is required", llmdomain.ErrInvalidInput)
	}

	conversationID, err := a.resolveConversation(ctx, params)
	if err != nil {
		return nil, err
	}

	var sources []*searchdomain.SearchResult
	bundle := &contextBundle{}
	if message != "" {
		// コンテキストは回答の根拠なので、検索の失敗は呼び出し全体の失敗とする
		results, err := a.engine.SearchAll(ctx, searchapp.SearchAllParams{
			Query:     message,
			PatientID: params.PatientID,
			Limit:     mo.Some(contextLimit),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve context: %w", err)
		}
		sources = results
		bundle = groupByKind(results)
	} else if patientID, ok := params.PatientID.Get(); ok {
		bundle = a.recentContext(ctx, patientID)
	}

	prompt := buildPrompt(message, bundle)
	answer, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	now := time.Now()
	userMessage := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           domain.RoleUser,
		Content:        message,
		CreatedAt:      now,
	}
	if err := a.messages.Append(ctx, userMessage); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	assistantMessage := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           domain.RoleAssistant,
		Content:        answer,
		Metadata:       map[string]any{"sources": sourceMetadata(sources)},
		CreatedAt:      now.Add(time.Millisecond),
	}
	if err := a.messages.Append(ctx, assistantMessage); err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}

	if err := a.conversations.Touch(ctx, conversationID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}

	return &ChatResult{
		ConversationID: conversationID,
		Message:        answer,
		Sources:        sources,
	}, nil
}

// History は会話のメッセージを作成日時の昇順で返す
func (a *Assistant) History(ctx context.Context, conversationID uuid.UUID) ([]*domain.Message, error) {
	if _, err := a.conversations.Get(ctx, conversationID); err != nil {
		return nil, err
	}
	return a.messages.ListByConversation(ctx, conversationID)
}

func (a *Assistant) resolveConversation(ctx context.Context, params ChatParams) (uuid.UUID, error) {
	if id, ok := params.ConversationID.Get(); ok {
		conversation, err := a.conversations.Get(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		return conversation.ID, nil
	}

	now := time.Now()
	conversation := &domain.Conversation{
		ID:        uuid.New(),
		UserID:    params.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if patientID, ok := params.PatientID.Get(); ok {
		conversation.PatientID = &patientID
	}
	if err := a.conversations.Create(ctx, conversation); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conversation.ID, nil
}

// groupByKind は検索結果を種別ごとのコンテキストにまとめる。
// 対応しない種別は黙って落とす。
func groupByKind(results []*searchdomain.SearchResult) *contextBundle {
	bundle := &contextBundle{}
	for _, res := range results {
		switch res.EntityKind {
		case searchdomain.KindMedications:
			bundle.Medications = append(bundle.Medications, res.Content)
		case searchdomain.KindVitals:
			bundle.Vitals = append(bundle.Vitals, res.Content)
		case searchdomain.KindNotes:
			bundle.Notes = append(bundle.Notes, res.Content)
		case searchdomain.KindDietLogs:
			bundle.Diet = append(bundle.Diet, res.Content)
		case searchdomain.KindExerciseLogs:
			bundle.Exercise = append(bundle.Exercise, res.Content)
		}
	}
	return bundle
}

// recentContext は検索を介さず各種別の直近レコードをコンテキストにする。
// 個々の取得失敗はログに残してその種別を飛ばす。
func (a *Assistant) recentContext(ctx context.Context, patientID uuid.UUID) *contextBundle {
	bundle := &contextBundle{}

	if notes, err := a.records.Notes.ListRecentByPatient(ctx, patientID, contextLimit); err != nil {
		a.logger.Warn("failed to load recent notes", "patientId", patientID, "error", err)
	} else {
		for _, n := range notes {
			bundle.Notes = append(bundle.Notes, n.EmbeddingText())
		}
	}

	if meds, err := a.records.Medications.ListRecentByPatient(ctx, patientID, contextLimit); err != nil {
		a.logger.Warn("failed to load recent medications", "patientId", patientID, "error", err)
	} else {
		for _, m := range meds {
			bundle.Medications = append(bundle.Medications, m.EmbeddingText())
		}
	}

	if vitals, err := a.records.Vitals.ListRecentByPatient(ctx, patientID, contextLimit); err != nil {
		a.logger.Warn("failed to load recent vitals", "patientId", patientID, "error", err)
	} else {
		for _, v := range vitals {
			entry := fmt.Sprintf("%s: %.1f %s", v.Kind, v.Value, v.Unit)
			if v.SecondaryValue != nil {
				entry = fmt.Sprintf("%s: %.1f/%.1f %s", v.Kind, v.Value, *v.SecondaryValue, v.Unit)
			}
			bundle.Vitals = append(bundle.Vitals, entry)
		}
	}

	if dietLogs, err := a.records.Diet.ListRecentByPatient(ctx, patientID, contextLimit); err != nil {
		a.logger.Warn("failed to load recent diet logs", "patientId", patientID, "error", err)
	} else {
		for _, d := range dietLogs {
			bundle.Diet = append(bundle.Diet, fmt.Sprintf("%s: %s (%d kcal)", d.MealType, d.FoodItems, d.Calories))
		}
	}

	if exerciseLogs, err := a.records.Exercise.ListRecentByPatient(ctx, patientID, contextLimit); err != nil {
		a.logger.Warn("failed to load recent exercise logs", "patientId", patientID, "error", err)
	} else {
		for _, e := range exerciseLogs {
			bundle.Exercise = append(bundle.Exercise, fmt.Sprintf("%s (%d min)", e.Activity, e.DurationMinutes))
		}
	}

	return bundle
}

// sourceMetadata は出典をメッセージのメタデータ形式に変換する
func sourceMetadata(sources []*searchdomain.SearchResult) []map[string]any {
	out := make([]map[string]any, 0, len(sources))
	for _, src := range sources {
		content := src.Content
		if len(content) > sourceContentLimit {
			content = content[:sourceContentLimit] + "..."
		}
		out = append(out, map[string]any{
			"entityId":   src.EntityID.String(),
			"entityKind": string(src.EntityKind),
			"similarity": src.Similarity,
			"content":    content,
		})
	}
	return out
}
