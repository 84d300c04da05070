package pg

import (
	"context"
	"fmt"

	"github.com/jinford/health-rag/internal/module/records/domain"
)

// UserRepository は domain.UserRepository を実装する PostgreSQL リポジトリ
type UserRepository struct {
	q DBTX
}

// NewUserRepository は新しいUserRepositoryを返す
func NewUserRepository(q DBTX) *UserRepository {
	return &UserRepository{q: q}
}

var _ domain.UserRepository = (*UserRepository)(nil)

// ListActiveUsers はアクティブなユーザの一覧を取得します
func (r *UserRepository) ListActiveUsers(ctx context.Context) ([]*domain.ActiveUser, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, patient_id
		FROM users
		WHERE status = 'active'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	var users []*domain.ActiveUser
	for rows.Next() {
		u := &domain.ActiveUser{}
		if err := rows.Scan(&u.UserID, &u.PatientID); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
