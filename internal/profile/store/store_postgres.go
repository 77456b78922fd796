package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"dossier/pkg/platform/sentinel"
)

// undefinedTable is the SQLSTATE for a missing relation. A fresh database
// without the preferences table simply has no profile yet.
const undefinedTable = "42P01"

const preferencesSchema = `
	CREATE TABLE IF NOT EXISTS preferences (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// Clock returns the current time.
type Clock func() time.Time

// Postgres keeps the slot as one row of a key/value preferences table.
type Postgres struct {
	db    *sql.DB
	key   string
	clock Clock
}

// PostgresOption configures a Postgres slot.
type PostgresOption func(*Postgres)

// WithPostgresKey overrides the row key.
func WithPostgresKey(key string) PostgresOption {
	return func(s *Postgres) {
		if key != "" {
			s.key = key
		}
	}
}

// WithPostgresClock sets the clock used for updated_at.
func WithPostgresClock(clock Clock) PostgresOption {
	return func(s *Postgres) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed slot.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	s := &Postgres{db: db, key: DefaultKey, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// EnsureSchema creates the preferences table when it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, preferencesSchema); err != nil {
		return fmt.Errorf("create preferences table: %w", err)
	}
	return nil
}

func (s *Postgres) Read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = $1`, s.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) || isUndefinedTable(err) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read preference %s: %w", s.key, err)
	}
	return data, nil
}

func (s *Postgres) Write(ctx context.Context, data []byte) error {
	query := `
		INSERT INTO preferences (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, s.key, data, s.clock()); err != nil {
		return fmt.Errorf("write preference %s: %w", s.key, err)
	}
	return nil
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == undefinedTable
}
