package pgvector

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/domain"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "chunks")
	assert.ErrorContains(t, err, "database connection is nil")

	db := &sql.DB{}
	for _, bad := range []string{"", "1chunks", "chunks; DROP TABLE x", "my-table"} {
		_, err := New(db, bad)
		assert.Error(t, err, "table %q", bad)
	}

	s, err := New(db, "ragqa_chunks")
	require.NoError(t, err)
	assert.Equal(t, `"ragqa_chunks"`, s.table)
	assert.Equal(t, `"ragqa_chunks_collections"`, s.collections)
}

func TestToFloat32(t *testing.T) {
	assert.Equal(t, []float32{0.5, -1, 0}, toFloat32([]float64{0.5, -1, 0}))
}

// TestStorage_Postgres runs against a live pgvector database when
// RAGQA_TEST_POSTGRES_DSN is set.
func TestStorage_Postgres(t *testing.T) {
	dsn := os.Getenv("RAGQA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RAGQA_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	table := "ragqa_test_" + uuid.NewString()[:8]
	s, err := Open(dsn, table)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.db.Exec(`DROP TABLE IF EXISTS ` + s.table)
		_, _ = s.db.Exec(`DROP TABLE IF EXISTS ` + s.collections)
		_ = s.Close()
	})

	require.NoError(t, s.EnsureCollection(ctx, "docs", 2))
	require.NoError(t, s.EnsureCollection(ctx, "docs", 2))
	assert.Error(t, s.EnsureCollection(ctx, "docs", 3))
	require.NoError(t, s.EnsureCollection(ctx, "slack", 2))

	require.NoError(t, s.Upsert(ctx, "docs", []domain.Point{
		{ID: "a", Vector: []float64{1, 0}, Payload: map[string]any{"text": "alpha"}},
		{ID: "b", Vector: []float64{0, 1}, Payload: map[string]any{"text": "beta"}},
	}))
	require.NoError(t, s.Upsert(ctx, "slack", []domain.Point{
		{ID: "a", Vector: []float64{1, 0}, Payload: map[string]any{"text": "other"}},
	}))

	hits, err := s.Search(ctx, "docs", []float64{1, 0.1}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "alpha", hits[0].Payload["text"])
	assert.Greater(t, hits[0].Score, hits[1].Score)
}
