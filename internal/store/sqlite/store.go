// Package sqlite persists the ledger, invoices and declarations in a SQLite
// database. Dates are stored as YYYY-MM-DD text and amounts as decimal text.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/period"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements every repository on one SQLite connection.
type Store struct {
	db *sql.DB

	// Now stamps CreatedAt on records that arrive without one.
	Now func() time.Time
}

// Open migrates the database at path to the latest schema and opens it.
func Open(path string) (*Store, error) {
	if err := Migrate(path); err != nil {
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)
	return &Store{db: db, Now: func() time.Time { return time.Now().UTC().Truncate(time.Second) }}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies every pending up migration. It opens its own connection,
// which the migrate driver closes when done.
func Migrate(path string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite3://"+path+"?_foreign_keys=on")
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// requireRow turns a zero-row update or delete into NotFound.
func requireRow(res sql.Result, kind string, key any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(kind, key)
	}
	return nil
}

// uniqueViolation maps a UNIQUE or PRIMARY KEY failure to a Conflict.
func uniqueViolation(err error, format string, args ...any) error {
	var se sqlite3.Error
	if errors.As(err, &se) && (se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return apperr.Conflict(format, args...)
	}
	return err
}

func dateValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return period.Format(t)
}

func parseDate(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	return period.Parse(ns.String)
}

func timestampValue(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolValue(b bool) int {
	if b {
		return 1
	}
	return 0
}
