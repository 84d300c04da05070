package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	llmdomain "github.com/jinford/health-rag/internal/module/llm/domain"
	recordsdomain "github.com/jinford/health-rag/internal/module/records/domain"
)

// pageSize は1スイープあたりの取得件数
const pageSize = 50

// Report はバックフィル1回分の集計
type Report struct {
	Embedded int
	Skipped  int
	Failed   int
}

// targetSource は1種別分のバックフィル対象の取得と書き込み
type targetSource struct {
	name string
	list func(ctx context.Context, limit, offset int) ([]*recordsdomain.EmbeddingTarget, error)
	set  func(ctx context.Context, target *recordsdomain.EmbeddingTarget, vector []float32) error
}

// Job はEmbedding未設定の過去レコードを全種別にわたって掃き出すバッチ。
// 個々のレコードの失敗は記録して続行し、バッチ全体は中断しない。
type Job struct {
	embedder llmdomain.Embedder
	notes    recordsdomain.NoteRepository
	meds     recordsdomain.MedicationRepository
	vitals   recordsdomain.VitalRepository
	diet     recordsdomain.DietLogRepository
	exercise recordsdomain.ExerciseLogRepository
	logger   *slog.Logger
}

// JobOption は Job のオプション設定
type JobOption func(*Job)

// WithJobLogger は Job にロガーを設定する
func WithJobLogger(logger *slog.Logger) JobOption {
	return func(j *Job) {
		j.logger = logger
	}
}

// NewJob は新しいJobを作成する
func NewJob(
	embedder llmdomain.Embedder,
	notes recordsdomain.NoteRepository,
	meds recordsdomain.MedicationRepository,
	vitals recordsdomain.VitalRepository,
	diet recordsdomain.DietLogRepository,
	exercise recordsdomain.ExerciseLogRepository,
	opts ...JobOption,
) *Job {
	j := &Job{
		embedder: embedder,
		notes:    notes,
		meds:     meds,
		vitals:   vitals,
		diet:     diet,
		exercise: exercise,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(j)
	}

	return j
}

func (j *Job) sources() []targetSource {
	ignoreField := func(set func(ctx context.Context, id uuid.UUID, vector []float32) error) func(context.Context, *recordsdomain.EmbeddingTarget, []float32) error {
		return func(ctx context.Context, target *recordsdomain.EmbeddingTarget, vector []float32) error {
			return set(ctx, target.ID, vector)
		}
	}

	return []targetSource{
		{name: "notes", list: j.notes.ListMissingEmbeddings, set: ignoreField(j.notes.SetEmbedding)},
		{name: "medications", list: j.meds.ListMissingEmbeddings, set: ignoreField(j.meds.SetEmbedding)},
		{name: "vitals", list: j.vitals.ListMissingEmbeddings, set: ignoreField(j.vitals.SetEmbedding)},
		{name: "diet_logs", list: j.diet.ListMissingEmbeddings, set: func(ctx context.Context, target *recordsdomain.EmbeddingTarget, vector []float32) error {
			return j.diet.SetEmbedding(ctx, target.ID, target.Field, vector)
		}},
		{name: "exercise_logs", list: j.exercise.ListMissingEmbeddings, set: ignoreField(j.exercise.SetEmbedding)},
	}
}

// Run は全種別を順にページ送りしながらEmbeddingを計算して書き戻す
func (j *Job) Run(ctx context.Context) *Report {
	report := &Report{}
	for _, src := range j.sources() {
		if err := j.sweep(ctx, src, report); err != nil {
			j.logger.Error("backfill sweep failed, moving to next source", "source", src.name, "error", err)
		}
	}

	j.logger.Info("backfill finished",
		"embedded", report.Embedded,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report
}

// sweep は1種別をページ送りで処理する。ページングのLIMIT/OFFSETは行単位で、
// 食事記録は1行から2フィールド分のターゲットが生成されうるため、
// 集計はターゲット単位、オフセットはmissing集合に残った行の数だけ進める。
func (j *Job) sweep(ctx context.Context, src targetSource, report *Report) error {
	offset := 0
	for {
		targets, err := src.list(ctx, pageSize, offset)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return nil
		}

		rowsSeen := make(map[uuid.UUID]struct{}, len(targets))
		for _, target := range targets {
			rowsSeen[target.ID] = struct{}{}
		}
		// Embeddingを書き込めなかったフィールドを1つでも持つ行はmissing集合に残る
		rowsLeft := make(map[uuid.UUID]struct{})

		// 空テキストのレコードはEmbedding対象外のままにする
		eligible := make([]*recordsdomain.EmbeddingTarget, 0, len(targets))
		for _, target := range targets {
			if strings.TrimSpace(target.Text) == "" {
				report.Skipped++
				rowsLeft[target.ID] = struct{}{}
				continue
			}
			eligible = append(eligible, target)
		}

		if len(eligible) > 0 {
			texts := make([]string, 0, len(eligible))
			for _, target := range eligible {
				texts = append(texts, target.Text)
			}

			vectors, err := j.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				report.Failed += len(eligible)
				for _, target := range eligible {
					rowsLeft[target.ID] = struct{}{}
				}
				j.logger.Warn("failed to embed backfill page", "source", src.name, "count", len(eligible), "error", err)
			} else {
				// バッチ結果は空要素を除いた入力と同順で対応する
				for i, target := range eligible {
					if err := src.set(ctx, target, vectors[i]); err != nil {
						report.Failed++
						rowsLeft[target.ID] = struct{}{}
						j.logger.Warn("failed to store embedding", "source", src.name, "id", target.ID, "error", err)
						continue
					}
					report.Embedded++
				}
			}
		}

		if len(rowsSeen) < pageSize {
			return nil
		}
		offset += len(rowsLeft)
	}
}
