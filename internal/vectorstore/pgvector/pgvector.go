// Package pgvector stores collection chunks in Postgres using the pgvector
// extension. All collections share one table partitioned by a collection column.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"ragqa/internal/domain"
)

var _ domain.VectorStore = (*Storage)(nil)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Storage is a pgvector backed vector store. It is safe for concurrent use.
type Storage struct {
	db          *sql.DB
	table       string
	collections string
}

// Open connects to Postgres with the lib/pq driver.
func Open(dsn, table string) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s, err := New(db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool. table must be a plain SQL identifier.
func New(db *sql.DB, table string) (*Storage, error) {
	if db == nil {
		return nil, errors.New("database connection is nil")
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Storage{
		db:          db,
		table:       pq.QuoteIdentifier(table),
		collections: pq.QuoteIdentifier(table + "_collections"),
	}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error { return s.db.Close() }

// EnsureCollection creates the schema on first use and registers the collection
// with its dimension. Registering an existing name with another dimension fails.
func (s *Storage) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			name TEXT PRIMARY KEY,
			dimension INTEGER NOT NULL
		)`, s.collections),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			embedding vector NOT NULL,
			payload JSONB NOT NULL,
			PRIMARY KEY (collection, id)
		)`, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (name, dimension) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`, s.collections),
		name, dimension,
	); err != nil {
		return fmt.Errorf("register collection: %w", err)
	}
	var existing int
	if err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT dimension FROM %s WHERE name = $1`, s.collections), name,
	).Scan(&existing); err != nil {
		return fmt.Errorf("read collection: %w", err)
	}
	if existing != dimension {
		return fmt.Errorf("collection %s exists with dimension %d, want %d", name, existing, dimension)
	}
	return nil
}

// Upsert writes all points in one transaction, replacing rows with the same id.
func (s *Storage) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (collection, id, embedding, payload) VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id) DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`, s.table))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, collection, p.ID, pgvector.NewVector(toFloat32(p.Vector)), payload); err != nil {
			return fmt.Errorf("upsert point %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// Search ranks the collection by cosine similarity (1 - cosine distance).
func (s *Storage) Search(ctx context.Context, collection string, vector []float64, limit int) ([]domain.Hit, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, payload, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE collection = $2
		ORDER BY embedding <=> $1
		LIMIT $3`, s.table),
		pgvector.NewVector(toFloat32(vector)), collection, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var hits []domain.Hit
	for rows.Next() {
		var (
			hit     domain.Hit
			payload []byte
		)
		if err := rows.Scan(&hit.ID, &payload, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal(payload, &hit.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return hits, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
