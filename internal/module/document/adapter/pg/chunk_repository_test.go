package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jinford/health-rag/internal/module/document/domain"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDBTX struct {
	execSQL  []string
	execArgs [][]any
	execErr  error
}

var _ DBTX = (*stubDBTX)(nil)

func (s *stubDBTX) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execSQL = append(s.execSQL, sql)
	s.execArgs = append(s.execArgs, args)
	return pgconn.CommandTag{}, s.execErr
}

func (s *stubDBTX) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query call")
}

func (s *stubDBTX) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func TestChunkRepository_DeleteByDocument(t *testing.T) {
	db := &stubDBTX{}
	repo := NewChunkRepository(db)

	documentID := uuid.New()
	err := repo.DeleteByDocument(context.Background(), documentID)
	require.NoError(t, err)

	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "DELETE FROM document_chunks")
	require.Len(t, db.execArgs[0], 1)
	assert.Equal(t, pgtype.UUID{Bytes: documentID, Valid: true}, db.execArgs[0][0])
}

func TestChunkRepository_Insert(t *testing.T) {
	db := &stubDBTX{}
	repo := NewChunkRepository(db)

	chunk := &domain.DocumentChunk{
		ID:         uuid.New(),
		DocumentID: uuid.New(),
		OwnerID:    uuid.New(),
		Index:      2,
		Content:    "chunk content",
		TokenCount: 4,
		StartChar:  100,
		EndChar:    113,
	}
	embedding := []float32{0.1, 0.2, 0.3}

	err := repo.Insert(context.Background(), chunk, embedding)
	require.NoError(t, err)

	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "INSERT INTO document_chunks")

	args := db.execArgs[0]
	require.Len(t, args, 9)
	assert.Equal(t, pgtype.UUID{Bytes: chunk.ID, Valid: true}, args[0])
	assert.Equal(t, pgtype.UUID{Bytes: chunk.DocumentID, Valid: true}, args[1])
	assert.Equal(t, chunk.Index, args[3])
	assert.Equal(t, chunk.Content, args[4])
	assert.Equal(t, pgvector.NewVector(embedding), args[8])
}

func TestChunkRepository_Insert_ExecError(t *testing.T) {
	db := &stubDBTX{execErr: errors.New("connection reset")}
	repo := NewChunkRepository(db)

	chunk := &domain.DocumentChunk{ID: uuid.New(), DocumentID: uuid.New(), OwnerID: uuid.New()}
	err := repo.Insert(context.Background(), chunk, []float32{0.1})
	assert.Error(t, err)
}
