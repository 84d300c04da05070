package adapter

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/jinford/health-rag/internal/module/llm/domain"
	genaiopt "google.golang.org/api/option"
)

// DefaultGeminiModel はモデル未指定時のデフォルトモデル
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiClient はGemini APIを使用したCompleter実装
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient は新しいGeminiClientを作成します
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, domain.ErrAPIKeyNotSet
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, genaiopt.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

// Complete はプロンプトに対する応答を生成する
// domain.Completerインターフェースを実装
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	// candidates[0].content.parts[0] をテキストとして取り出す
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response from provider", domain.ErrGenerationFailed)
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("%w: unexpected response part type", domain.ErrGenerationFailed)
	}

	return string(text), nil
}

// Close は内部クライアントを閉じます
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// インターフェース実装の確認
var _ domain.Completer = (*GeminiClient)(nil)
