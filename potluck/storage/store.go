// Package storage persists events, RSVPs, dishes and users with sqlx. The
// same queries run on postgres and sqlite; placeholders are written as "?"
// and rebound for the connected driver.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/potluckbot/core/database"
)

var (
	// ErrNotFound is returned by update paths when the target row is missing.
	// Lookups report absence as a nil result instead.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalid rejects values the schema would refuse.
	ErrInvalid = errors.New("storage: invalid value")
)

//go:embed migrations
var migrationFiles embed.FS

// Migrations returns the migration set for dialect, rooted at its directory.
func Migrations(dialect database.Dialect) (fs.FS, error) {
	switch dialect {
	case database.DialectPostgres, database.DialectSQLite:
	default:
		return nil, fmt.Errorf("storage: no migrations for dialect %q", dialect)
	}
	return fs.Sub(migrationFiles, "migrations/"+string(dialect))
}

// Store implements the event, RSVP and user stores.
type Store struct {
	db      *sqlx.DB
	dialect database.Dialect
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New wraps an open connection.
func New(db *sqlx.DB, dialect database.Dialect, opts ...Option) *Store {
	s := &Store{db: db, dialect: dialect, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying connection.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close closes the connection.
func (s *Store) Close() error { return s.db.Close() }

// timestamp is the current time in UTC at the precision both backends keep.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func newID() string { return uuid.NewString() }

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// getOne runs a single-row query. A missing row yields found=false.
func getOne(ctx context.Context, q sqlx.ExtContext, dest any, query string, args ...any) (bool, error) {
	err := sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
