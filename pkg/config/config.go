package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings用）
	OpenAI OpenAIConfig

	// Gemini設定（チャット応答生成用）
	Gemini GeminiConfig

	// 検索設定
	Search SearchConfig

	// スケジューラ設定
	Scheduler SchedulerConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定（Embeddings用）
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string // 互換エンドポイントのベースURL（省略時はキープレフィックスで判定）
	EmbeddingModel     string
	EmbeddingDimension int
}

// GeminiConfig はチャット応答生成用のGemini API設定
type GeminiConfig struct {
	APIKey string
	Model  string
}

// SearchConfig はセマンティック検索の設定
type SearchConfig struct {
	DefaultThreshold float64
	DefaultLimit     int
}

// SchedulerConfig はインサイト生成スケジューラの設定
type SchedulerConfig struct {
	Enabled        bool
	GenerationCron string // Cron形式（例: "0 6 * * *" = 毎日6:00）
	CleanupCron    string // Cron形式（生成とは独立したタイマー）
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "healthrag"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "healthrag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			BaseURL:            getEnv("OPENAI_BASE_URL", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		Search: SearchConfig{
			DefaultThreshold: getEnvAsFloat("SEARCH_DEFAULT_THRESHOLD", 0.7),
			DefaultLimit:     getEnvAsInt("SEARCH_DEFAULT_LIMIT", 10),
		},
		Scheduler: SchedulerConfig{
			Enabled:        getEnvAsBool("INSIGHT_SCHEDULER_ENABLED", true),
			GenerationCron: getEnv("INSIGHT_GENERATION_CRON", "0 6 * * *"),
			CleanupCron:    getEnv("INSIGHT_CLEANUP_CRON", "0 3 * * *"),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
