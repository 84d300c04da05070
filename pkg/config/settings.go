package config

import "sync"

// Settings は実行中に参照・更新される設定値を保持します。
// 起動時にすべての値が解決された状態で生成され、以降の読み取りはブロックしません。
// Embeddingモデル・次元数の変更は保存済みベクトルとの互換性を壊すため、
// Refresh で反映しても既存データの再Embeddingが完了するまで類似検索は成立しません
// （運用上の注意であり、ここでは自動対応しません）。
type Settings struct {
	mu sync.RWMutex

	embeddingModel     string
	embeddingDimension int
	defaultThreshold   float64
	defaultLimit       int
	schedulerEnabled   bool
}

// NewSettings はConfigから初期値を解決したSettingsを作成します
func NewSettings(cfg *Config) *Settings {
	return &Settings{
		embeddingModel:     cfg.OpenAI.EmbeddingModel,
		embeddingDimension: cfg.OpenAI.EmbeddingDimension,
		defaultThreshold:   cfg.Search.DefaultThreshold,
		defaultLimit:       cfg.Search.DefaultLimit,
		schedulerEnabled:   cfg.Scheduler.Enabled,
	}
}

// EmbeddingModel はEmbeddingモデル名を返します
func (s *Settings) EmbeddingModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingModel
}

// EmbeddingDimension はEmbeddingベクトルの次元数を返します
func (s *Settings) EmbeddingDimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingDimension
}

// DefaultThreshold は検索の類似度しきい値のデフォルト値を返します
func (s *Settings) DefaultThreshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultThreshold
}

// DefaultLimit は検索結果件数のデフォルト上限を返します
func (s *Settings) DefaultLimit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultLimit
}

// SchedulerEnabled はインサイト自動生成の有効フラグを返します
func (s *Settings) SchedulerEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedulerEnabled
}

// Refresh は設定ストアから再読込した値を反映します
func (s *Settings) Refresh(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddingModel = cfg.OpenAI.EmbeddingModel
	s.embeddingDimension = cfg.OpenAI.EmbeddingDimension
	s.defaultThreshold = cfg.Search.DefaultThreshold
	s.defaultLimit = cfg.Search.DefaultLimit
	s.schedulerEnabled = cfg.Scheduler.Enabled
}
