package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franz/tilekeeper/internal/util"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	currentSchemaVersion = 2
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Prepare(query string) (*sql.Stmt, error)
}

// tables implements group and tile access over any querier
type tables struct {
	q     querier
	clock util.Clock
}

// Store is the local relational store for groups and tiles
type Store struct {
	tables
	db    *sql.DB
	retry *util.RetryConfig
}

// Tx exposes the same group and tile operations inside one transaction
type Tx struct {
	tables
	tx *sql.Tx
}

// OpenOptions holds options for opening a database
type OpenOptions struct {
	Clock util.Clock        // Time source for created/updated stamps (default: system clock)
	Retry *util.RetryConfig // Busy retry policy for transactions (default: util.DefaultRetryConfig)
}

// Open opens or creates a SQLite database at the given path with default options
func Open(path string) (*Store, error) {
	return OpenWithOptions(path, nil)
}

// OpenWithOptions opens or creates a SQLite database with custom options
func OpenWithOptions(path string, opts *OpenOptions) (*Store, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}
	if opts.Clock == nil {
		opts.Clock = util.SystemClock{}
	}
	if opts.Retry == nil {
		opts.Retry = util.DefaultRetryConfig()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with a single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{
		tables: tables{q: db, clock: opts.Clock},
		db:     db,
		retry:  opts.Retry,
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// SQLiteVersion returns the SQLite version string
func SQLiteVersion() string {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return ""
	}
	defer db.Close()

	var version string
	err = db.QueryRow("SELECT sqlite_version()").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}

// CheckIntegrity runs PRAGMA integrity_check on the database
func (s *Store) CheckIntegrity() error {
	var result string
	err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result)
	if err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

// migrate applies database schema migrations
func (s *Store) migrate() error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if err := s.setSchemaVersion(tx, 1); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	if version < 2 {
		if _, err := tx.Exec(schemaV2); err != nil {
			return fmt.Errorf("failed to apply schema v2: %w", err)
		}
		if err := s.setSchemaVersion(tx, 2); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

// getSchemaVersion returns the current schema version
func (s *Store) getSchemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}

	if exists == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion records a schema version in a transaction
func (s *Store) setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// Transaction executes fn within a transaction. The whole transaction is
// retried when SQLite reports the database as busy; fn must therefore be
// safe to run more than once.
func (s *Store) Transaction(ctx context.Context, fn func(*Tx) error) error {
	return util.Retry(s.retry, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if err := fn(&Tx{tables: tables{q: tx, clock: s.clock}, tx: tx}); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	}, "transaction")
}

// Clear removes every group and tile. Used by forced fresh migrations.
func (s *Store) Clear(ctx context.Context) error {
	return s.Transaction(ctx, func(tx *Tx) error {
		if _, err := tx.q.Exec("DELETE FROM tiles"); err != nil {
			return fmt.Errorf("failed to clear tiles: %w", err)
		}
		if _, err := tx.q.Exec("DELETE FROM groups"); err != nil {
			return fmt.Errorf("failed to clear groups: %w", err)
		}
		return nil
	})
}
