package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/health-rag/internal/module/insight/domain"
	recordsdomain "github.com/jinford/health-rag/internal/module/records/domain"
	"github.com/jinford/health-rag/pkg/config"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultGenerationSchedule は毎朝のインサイト自動生成の既定スケジュール
	DefaultGenerationSchedule = "0 6 * * *"
	// DefaultCleanupSchedule は期限切れインサイト削除の既定スケジュール
	DefaultCleanupSchedule = "0 3 * * *"
)

// scheduledKinds は自動生成で各ユーザに対して試行する種別
var scheduledKinds = []domain.InsightKind{
	domain.KindMedicationAdherence,
	domain.KindHealthTrend,
	domain.KindRecommendation,
}

// InsightProducer は1件のインサイト生成を提供する
type InsightProducer interface {
	Generate(ctx context.Context, params GenerateParams) (*domain.Insight, error)
}

// GenerationReport は自動生成バッチ1回分の集計
type GenerationReport struct {
	Users     int
	Generated int
	Skipped   int
	Failed    int
}

// Scheduler はインサイトの定期生成と期限切れ削除を駆動する。
// RunDailyGeneration / RunCleanup はタイマーから独立して直接呼び出せる。
type Scheduler struct {
	cron           *cron.Cron
	producer       InsightProducer
	users          recordsdomain.UserRepository
	repo           domain.InsightRepository
	settings       *config.Settings
	logger         *slog.Logger
	generationSpec string
	cleanupSpec    string
}

// SchedulerOption は Scheduler のオプション設定
type SchedulerOption func(*Scheduler)

// WithGenerationSchedule は自動生成のcron式を設定する
func WithGenerationSchedule(spec string) SchedulerOption {
	return func(s *Scheduler) {
		if spec != "" {
			s.generationSpec = spec
		}
	}
}

// WithCleanupSchedule はクリーンアップのcron式を設定する
func WithCleanupSchedule(spec string) SchedulerOption {
	return func(s *Scheduler) {
		if spec != "" {
			s.cleanupSpec = spec
		}
	}
}

// WithSchedulerLogger は Scheduler にロガーを設定する
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler は新しいSchedulerを作成する
func NewScheduler(producer InsightProducer, users recordsdomain.UserRepository, repo domain.InsightRepository, settings *config.Settings, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		cron:           cron.New(),
		producer:       producer,
		users:          users,
		repo:           repo,
		settings:       settings,
		logger:         slog.Default(),
		generationSpec: DefaultGenerationSchedule,
		cleanupSpec:    DefaultCleanupSchedule,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start はタイマーを登録して起動する。有効フラグは生成ジョブの実行時に
// 毎回評価される（クリーンアップは常に実行する）。
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.generationSpec, func() {
		if !s.settings.SchedulerEnabled() {
			s.logger.Info("insight generation is disabled, skipping scheduled run")
			return
		}
		report, err := s.RunDailyGeneration(ctx)
		if err != nil {
			s.logger.Error("scheduled insight generation failed", "error", err)
			return
		}
		s.logger.Info("scheduled insight generation finished",
			"users", report.Users,
			"generated", report.Generated,
			"skipped", report.Skipped,
			"failed", report.Failed,
		)
	})
	if err != nil {
		return fmt.Errorf("failed to register generation schedule %q: %w", s.generationSpec, err)
	}

	_, err = s.cron.AddFunc(s.cleanupSpec, func() {
		deleted, err := s.RunCleanup(ctx)
		if err != nil {
			s.logger.Error("scheduled insight cleanup failed", "error", err)
			return
		}
		s.logger.Info("scheduled insight cleanup finished", "deleted", deleted)
	})
	if err != nil {
		return fmt.Errorf("failed to register cleanup schedule %q: %w", s.cleanupSpec, err)
	}

	s.cron.Start()
	return nil
}

// Stop はタイマーを停止し、実行中のジョブの完了を待つ
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunDailyGeneration は全アクティブユーザに対して3種別のインサイト生成を
// 順番に試行する。個々の失敗は記録して続行し、バッチ全体は中断しない。
func (s *Scheduler) RunDailyGeneration(ctx context.Context) (*GenerationReport, error) {
	activeUsers, err := s.users.ListActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}

	report := &GenerationReport{Users: len(activeUsers)}
	for _, user := range activeUsers {
		for _, kind := range scheduledKinds {
			_, err := s.producer.Generate(ctx, GenerateParams{
				Kind:      kind,
				UserID:    user.UserID,
				PatientID: user.PatientID,
			})
			if errors.Is(err, domain.ErrNoInsight) {
				report.Skipped++
				continue
			}
			if err != nil {
				report.Failed++
				s.logger.Warn("insight generation failed for user",
					"userId", user.UserID,
					"kind", kind,
					"error", err,
				)
				continue
			}
			report.Generated++
		}
	}

	return report, nil
}

// RunCleanup は期限切れのインサイトを削除する
func (s *Scheduler) RunCleanup(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired insights: %w", err)
	}
	return deleted, nil
}
