package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/voxjot/voxjot/pkg/types"
)

// Schema is the SQL DDL for the journal_blobs table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
//
// The journal is stored as one JSONB blob per storage key, mirroring the
// single-key blob contract of [Store]. One row holds the whole record list.
const Schema = `
CREATE TABLE IF NOT EXISTS journal_blobs (
    storage_key TEXT PRIMARY KEY,
    records     JSONB NOT NULL DEFAULT '[]',
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DefaultStorageKey is the storage key used when none is configured.
const DefaultStorageKey = "journal"

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. The full record
// list is serialised as a single JSONB value, so a save either replaces the
// whole journal or leaves the prior state untouched.
type PostgresStore struct {
	db     DB
	key    string
	logger *slog.Logger
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// PostgresOption configures a [PostgresStore].
type PostgresOption func(*PostgresStore)

// WithStorageKey overrides [DefaultStorageKey]. Separate keys allow multiple
// independent journals to share one table.
func WithStorageKey(key string) PostgresOption {
	return func(s *PostgresStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithPostgresLogger sets the logger used to report swallowed corruption.
func WithPostgresLogger(logger *slog.Logger) PostgresOption {
	return func(s *PostgresStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		db:     db,
		key:    DefaultStorageKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate executes the [Schema] DDL against the database, creating the
// journal_blobs table if it does not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("journal: migrate: %w", err)
	}
	return nil
}

// Load implements [Store.Load]. A missing row yields an empty list. A blob
// that no longer deserialises also yields an empty list: corruption is logged
// and swallowed so a damaged journal never blocks capture.
func (s *PostgresStore) Load(ctx context.Context) ([]types.Record, error) {
	const query = `SELECT records FROM journal_blobs WHERE storage_key = $1`

	var blob []byte
	err := s.db.QueryRow(ctx, query, s.key).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: load %q: %w", s.key, err)
	}

	var records []types.Record
	if err := json.Unmarshal(blob, &records); err != nil {
		s.logger.Warn("discarding corrupt journal blob",
			"storage_key", s.key, "error", err)
		return nil, nil
	}
	return records, nil
}

// Save implements [Store.Save]. The whole list is serialised and written in
// one upsert; on error the previously stored blob is unchanged.
func (s *PostgresStore) Save(ctx context.Context, records []types.Record) error {
	if records == nil {
		records = []types.Record{}
	}
	blob, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("journal: marshal records: %w", err)
	}

	const query = `
		INSERT INTO journal_blobs (storage_key, records)
		VALUES ($1, $2)
		ON CONFLICT (storage_key) DO UPDATE SET
			records = EXCLUDED.records,
			updated_at = now()`

	if _, err := s.db.Exec(ctx, query, s.key, blob); err != nil {
		return fmt.Errorf("journal: save %q: %w", s.key, err)
	}
	return nil
}
