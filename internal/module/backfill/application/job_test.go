package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	recordsdomain "github.com/jinford/health-rag/internal/module/records/domain"
	"github.com/stretchr/testify/assert"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int {
	return len(s.vector)
}

// backfillStore はmissing集合のページ送りを模した共通スタブ
type backfillStore struct {
	targets  []*recordsdomain.EmbeddingTarget
	embedded map[uuid.UUID]recordsdomain.EmbeddingField
	setErr   error
}

func newBackfillStore(targets ...*recordsdomain.EmbeddingTarget) *backfillStore {
	return &backfillStore{
		targets:  targets,
		embedded: make(map[uuid.UUID]recordsdomain.EmbeddingField),
	}
}

func (s *backfillStore) missing(limit, offset int) []*recordsdomain.EmbeddingTarget {
	var out []*recordsdomain.EmbeddingTarget
	for _, t := range s.targets {
		if _, ok := s.embedded[t.ID]; !ok {
			out = append(out, t)
		}
	}
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *backfillStore) store(id uuid.UUID, field recordsdomain.EmbeddingField) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.embedded[id] = field
	return nil
}

type stubNoteRepo struct{ *backfillStore }

func (s *stubNoteRepo) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*recordsdomain.Note, error) {
	return nil, nil
}

func (s *stubNoteRepo) ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*recordsdomain.EmbeddingTarget, error) {
	return s.missing(limit, offset), nil
}

func (s *stubNoteRepo) SetEmbedding(ctx context.Context, id uuid.UUID, vector []float32) error {
	return s.store(id, recordsdomain.FieldContent)
}

type stubMedRepo struct{ *backfillStore }

func (s *stubMedRepo) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*recordsdomain.Medication, error) {
	return nil, nil
}

func (s *stubMedRepo) DoseSummaries(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*recordsdomain.DoseSummary, error) {
	return nil, nil
}

func (s *stubMedRepo) ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*recordsdomain.EmbeddingTarget, error) {
	return s.missing(limit, offset), nil
}

func (s *stubMedRepo) SetEmbedding(ctx context.Context, id uuid.UUID, vector []float32) error {
	return s.store(id, recordsdomain.FieldContent)
}

type stubVitalRepo struct{ *backfillStore }

func (s *stubVitalRepo) ListByPatientRange(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*recordsdomain.VitalMeasurement, error) {
	return nil, nil
}

func (s *stubVitalRepo) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*recordsdomain.VitalMeasurement, error) {
	return nil, nil
}

func (s *stubVitalRepo) ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*recordsdomain.EmbeddingTarget, error) {
	return s.missing(limit, offset), nil
}

func (s *stubVitalRepo) SetEmbedding(ctx context.Context, id uuid.UUID, vector []float32) error {
	return s.store(id, recordsdomain.FieldContent)
}

type stubDietRepo struct{ *backfillStore }

func (s *stubDietRepo) ListByPatientRange(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*recordsdomain.DietLog, error) {
	return nil, nil
}

func (s *stubDietRepo) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*recordsdomain.DietLog, error) {
	return nil, nil
}

func (s *stubDietRepo) ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*recordsdomain.EmbeddingTarget, error) {
	return s.missing(limit, offset), nil
}

func (s *stubDietRepo) SetEmbedding(ctx context.Context, id uuid.UUID, field recordsdomain.EmbeddingField, vector []float32) error {
	return s.store(id, field)
}

type stubExerciseRepo struct{ *backfillStore }

func (s *stubExerciseRepo) ListByPatientRange(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*recordsdomain.ExerciseLog, error) {
	return nil, nil
}

func (s *stubExerciseRepo) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*recordsdomain.ExerciseLog, error) {
	return nil, nil
}

func (s *stubExerciseRepo) ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*recordsdomain.EmbeddingTarget, error) {
	return s.missing(limit, offset), nil
}

func (s *stubExerciseRepo) SetEmbedding(ctx context.Context, id uuid.UUID, vector []float32) error {
	return s.store(id, recordsdomain.FieldContent)
}

func target(text string) *recordsdomain.EmbeddingTarget {
	return &recordsdomain.EmbeddingTarget{ID: uuid.New(), Field: recordsdomain.FieldContent, Text: text}
}

func newTestJob(notes, meds, vitals, diet, exercise *backfillStore, embedder *stubEmbedder) *Job {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewJob(
		embedder,
		&stubNoteRepo{notes},
		&stubMedRepo{meds},
		&stubVitalRepo{vitals},
		&stubDietRepo{diet},
		&stubExerciseRepo{exercise},
		WithJobLogger(logger),
	)
}

func TestJob_Run_EmbedsAllSources(t *testing.T) {
	notes := newBackfillStore(target("note one"), target("note two"))
	meds := newBackfillStore(target("metformin"))
	vitals := newBackfillStore()
	diet := newBackfillStore(&recordsdomain.EmbeddingTarget{ID: uuid.New(), Field: recordsdomain.FieldNotes, Text: "felt full"})
	exercise := newBackfillStore()

	job := newTestJob(notes, meds, vitals, diet, exercise, &stubEmbedder{vector: []float32{0.1}})

	report := job.Run(context.Background())

	assert.Equal(t, 4, report.Embedded)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Failed)
	assert.Len(t, notes.embedded, 2)

	// 食事記録はフィールド指定が保たれる
	for _, field := range diet.embedded {
		assert.Equal(t, recordsdomain.FieldNotes, field)
	}
}

func TestJob_Run_SkipsEmptyText(t *testing.T) {
	notes := newBackfillStore(target("real note"), target("   "))
	job := newTestJob(notes, newBackfillStore(), newBackfillStore(), newBackfillStore(), newBackfillStore(), &stubEmbedder{vector: []float32{0.1}})

	report := job.Run(context.Background())

	assert.Equal(t, 1, report.Embedded)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, notes.embedded, 1)
}

func TestJob_Run_StoreFailureDoesNotAbortBatch(t *testing.T) {
	notes := newBackfillStore(target("note"))
	notes.setErr = errors.New("write failed")
	meds := newBackfillStore(target("aspirin"))

	job := newTestJob(notes, meds, newBackfillStore(), newBackfillStore(), newBackfillStore(), &stubEmbedder{vector: []float32{0.1}})

	report := job.Run(context.Background())

	// ノートの失敗があっても処方薬は処理される
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Embedded)
	assert.Len(t, meds.embedded, 1)
}

func TestJob_Run_EmbedFailureCountsWholePage(t *testing.T) {
	notes := newBackfillStore(target("a"), target("b"))
	job := newTestJob(notes, newBackfillStore(), newBackfillStore(), newBackfillStore(), newBackfillStore(), &stubEmbedder{err: errors.New("provider down")})

	report := job.Run(context.Background())

	assert.Equal(t, 2, report.Failed)
	assert.Zero(t, report.Embedded)
}

// dietRow は2フィールドのEmbedding状態を持つ食事記録の行
type dietRow struct {
	id            uuid.UUID
	food          string
	notes         string
	foodEmbedded  bool
	notesEmbedded bool
}

func (r *dietRow) missing() bool {
	return (!r.foodEmbedded && strings.TrimSpace(r.food) != "") ||
		(!r.notesEmbedded && strings.TrimSpace(r.notes) != "")
}

// stubDietRowRepo は行単位のLIMIT/OFFSETと1行2ターゲットの展開を模すスタブ
type stubDietRowRepo struct {
	rows    []*dietRow
	failIDs map[uuid.UUID]bool
}

func (s *stubDietRowRepo) ListByPatientRange(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]*recordsdomain.DietLog, error) {
	return nil, nil
}

func (s *stubDietRowRepo) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*recordsdomain.DietLog, error) {
	return nil, nil
}

func (s *stubDietRowRepo) ListMissingEmbeddings(ctx context.Context, limit, offset int) ([]*recordsdomain.EmbeddingTarget, error) {
	var missingRows []*dietRow
	for _, r := range s.rows {
		if r.missing() {
			missingRows = append(missingRows, r)
		}
	}
	if offset >= len(missingRows) {
		return nil, nil
	}
	missingRows = missingRows[offset:]
	if len(missingRows) > limit {
		missingRows = missingRows[:limit]
	}

	var targets []*recordsdomain.EmbeddingTarget
	for _, r := range missingRows {
		if !r.foodEmbedded && strings.TrimSpace(r.food) != "" {
			targets = append(targets, &recordsdomain.EmbeddingTarget{ID: r.id, Field: recordsdomain.FieldFoodItems, Text: r.food})
		}
		if !r.notesEmbedded && strings.TrimSpace(r.notes) != "" {
			targets = append(targets, &recordsdomain.EmbeddingTarget{ID: r.id, Field: recordsdomain.FieldNotes, Text: r.notes})
		}
	}
	return targets, nil
}

func (s *stubDietRowRepo) SetEmbedding(ctx context.Context, id uuid.UUID, field recordsdomain.EmbeddingField, vector []float32) error {
	if s.failIDs[id] {
		return errors.New("write failed")
	}
	for _, r := range s.rows {
		if r.id != id {
			continue
		}
		if field == recordsdomain.FieldFoodItems {
			r.foodEmbedded = true
		} else {
			r.notesEmbedded = true
		}
	}
	return nil
}

func TestJob_Run_DietRowPaginationSurvivesDoubleFieldFailure(t *testing.T) {
	// 全行が両フィールド未設定。先頭行は両フィールドとも書き込みに失敗する。
	rows := make([]*dietRow, 0, pageSize+1)
	for i := 0; i < pageSize+1; i++ {
		rows = append(rows, &dietRow{id: uuid.New(), food: "rice", notes: "after lunch"})
	}
	diet := &stubDietRowRepo{
		rows:    rows,
		failIDs: map[uuid.UUID]bool{rows[0].id: true},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := NewJob(
		&stubEmbedder{vector: []float32{0.1}},
		&stubNoteRepo{newBackfillStore()},
		&stubMedRepo{newBackfillStore()},
		&stubVitalRepo{newBackfillStore()},
		diet,
		&stubExerciseRepo{newBackfillStore()},
		WithJobLogger(logger),
	)

	report := job.Run(context.Background())

	// 失敗した先頭行の2ターゲット以外はすべて書き込まれる
	assert.Equal(t, 2*pageSize, report.Embedded)
	assert.Equal(t, 2, report.Failed)

	// ページ境界を跨いだ最終行が取り残されていないこと
	last := rows[len(rows)-1]
	assert.True(t, last.foodEmbedded)
	assert.True(t, last.notesEmbedded)
}

func TestJob_Run_PaginatesPastPageSize(t *testing.T) {
	targets := make([]*recordsdomain.EmbeddingTarget, 0, pageSize+10)
	for i := 0; i < pageSize+10; i++ {
		targets = append(targets, target("note"))
	}
	notes := newBackfillStore(targets...)

	job := newTestJob(notes, newBackfillStore(), newBackfillStore(), newBackfillStore(), newBackfillStore(), &stubEmbedder{vector: []float32{0.1}})

	report := job.Run(context.Background())

	assert.Equal(t, pageSize+10, report.Embedded)
	assert.Len(t, notes.embedded, pageSize+10)
}
