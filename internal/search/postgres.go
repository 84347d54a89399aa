package search

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/voxjot/voxjot/pkg/provider/embeddings"
	"github.com/voxjot/voxjot/pkg/types"
)

// PostgresIndex is an [Index] backed by a PostgreSQL table with a pgvector
// HNSW index for approximate nearest-neighbour search.
//
// All methods are safe for concurrent use.
type PostgresIndex struct {
	pool     *pgxpool.Pool
	embedder embeddings.Provider
}

// Compile-time interface check.
var _ Index = (*PostgresIndex)(nil)

// ddl returns the index DDL with the embedding dimension substituted. The
// vector dimension is baked into the column type at schema creation time;
// changing embedding models with a different dimension requires dropping the
// table and reindexing.
func ddl(dimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS record_embeddings (
    record_id   TEXT         PRIMARY KEY,
    topic       TEXT         NOT NULL DEFAULT '',
    embedding   vector(%d),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_record_embeddings_embedding
    ON record_embeddings USING hnsw (embedding vector_cosine_ops);
`, dimensions)
}

// NewPostgresIndex establishes a connection pool to the database at dsn,
// registers pgvector types on every connection, and ensures the
// record_embeddings table exists with the embedder's output dimension.
func NewPostgresIndex(ctx context.Context, dsn string, embedder embeddings.Provider) (*PostgresIndex, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("search: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("search: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("search: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddl(embedder.Dimensions())); err != nil {
		pool.Close()
		return nil, fmt.Errorf("search: migrate: %w", err)
	}

	return &PostgresIndex{pool: pool, embedder: embedder}, nil
}

// Close releases all connections held by the underlying pool.
func (s *PostgresIndex) Close() {
	s.pool.Close()
}

// IndexRecord implements [Index].
func (s *PostgresIndex) IndexRecord(ctx context.Context, record types.Record) error {
	text := embeddingText(record)
	if text == "" {
		// Nothing embeddable; make sure a stale entry does not linger.
		return s.Remove(ctx, record.ID)
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("search: embed record %q: %w", record.ID, err)
	}

	const q = `
		INSERT INTO record_embeddings (record_id, topic, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (record_id) DO UPDATE SET
		    topic      = EXCLUDED.topic,
		    embedding  = EXCLUDED.embedding,
		    updated_at = now()`

	if _, err := s.pool.Exec(ctx, q, record.ID, record.Topic, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("search: index record %q: %w", record.ID, err)
	}
	return nil
}

// Remove implements [Index].
func (s *PostgresIndex) Remove(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM record_embeddings WHERE record_id = $1`, id); err != nil {
		return fmt.Errorf("search: remove record %q: %w", id, err)
	}
	return nil
}

// Query implements [Index]. Results are ordered by ascending cosine distance.
func (s *PostgresIndex) Query(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	const q = `
		SELECT record_id, topic, embedding <=> $1 AS distance
		FROM   record_embeddings
		ORDER  BY distance
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}

	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Match, error) {
		var m Match
		err := row.Scan(&m.RecordID, &m.Topic, &m.Distance)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("search: scan rows: %w", err)
	}
	return matches, nil
}
