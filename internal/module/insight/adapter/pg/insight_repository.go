package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jinford/health-rag/internal/module/insight/domain"
	llmdomain "github.com/jinford/health-rag/internal/module/llm/domain"
	pgvector "github.com/pgvector/pgvector-go"
)

// InsightRepository はインサイトのPostgreSQL永続化実装
type InsightRepository struct {
	q DBTX
}

// NewInsightRepository は新しいInsightRepositoryを作成する
func NewInsightRepository(q DBTX) *InsightRepository {
	return &InsightRepository{q: q}
}

var _ domain.InsightRepository = (*InsightRepository)(nil)

// Create はインサイトをEmbedding付きで保存します
func (r *InsightRepository) Create(ctx context.Context, insight *domain.Insight, embedding []float32) error {
	var expiresAt pgtype.Timestamptz
	if insight.ExpiresAt != nil {
		expiresAt = pgtype.Timestamptz{Time: *insight.ExpiresAt, Valid: true}
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO insights (id, user_id, patient_id, kind, title, content, confidence, priority, category, recommendations, read, archived, generated_at, expires_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, false, $11, $12, $13)
	`,
		uuidParam(insight.ID),
		uuidParam(insight.UserID),
		uuidParam(insight.PatientID),
		string(insight.Kind),
		insight.Title,
		insight.Content,
		insight.Confidence,
		string(insight.Priority),
		string(insight.Category),
		insight.Recommendations,
		insight.GeneratedAt,
		expiresAt,
		pgvector.NewVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}
	return nil
}

// ListByUser はユーザのインサイトを生成日時の降順で返します
func (r *InsightRepository) ListByUser(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]*domain.Insight, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, patient_id, kind, title, content, confidence, priority, category, recommendations, read, archived, generated_at, expires_at
		FROM insights
		WHERE user_id = $1
		  AND ($2 OR NOT archived)
		ORDER BY generated_at DESC
	`, uuidParam(userID), includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	defer rows.Close()

	var insights []*domain.Insight
	for rows.Next() {
		var (
			insight   domain.Insight
			id        pgtype.UUID
			uid       pgtype.UUID
			pid       pgtype.UUID
			kind      string
			priority  string
			category  string
			expiresAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &uid, &pid, &kind, &insight.Title, &insight.Content, &insight.Confidence, &priority, &category, &insight.Recommendations, &insight.Read, &insight.Archived, &insight.GeneratedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		insight.ID = uuid.UUID(id.Bytes)
		insight.UserID = uuid.UUID(uid.Bytes)
		insight.PatientID = uuid.UUID(pid.Bytes)
		insight.Kind = domain.InsightKind(kind)
		insight.Priority = domain.Priority(priority)
		insight.Category = domain.Category(category)
		if expiresAt.Valid {
			t := expiresAt.Time
			insight.ExpiresAt = &t
		}
		insights = append(insights, &insight)
	}
	return insights, rows.Err()
}

// MarkRead は既読フラグを立てます
func (r *InsightRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE insights SET read = true WHERE id = $1
	`, uuidParam(id))
	if err != nil {
		return fmt.Errorf("failed to mark insight as read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: insight %s", llmdomain.ErrNotFound, id)
	}
	return nil
}

// Archive はアーカイブフラグを立てます
func (r *InsightRepository) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE insights SET archived = true WHERE id = $1
	`, uuidParam(id))
	if err != nil {
		return fmt.Errorf("failed to archive insight: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: insight %s", llmdomain.ErrNotFound, id)
	}
	return nil
}

// DeleteExpired は期限切れのインサイトを削除し、削除件数を返します
func (r *InsightRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM insights
		WHERE expires_at IS NOT NULL
		  AND expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired insights: %w", err)
	}
	return tag.RowsAffected(), nil
}

func uuidParam(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
