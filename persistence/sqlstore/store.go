// Package sqlstore is a persistence.Store backed by database/sql, for
// deployments that point DB_URL at a SQL database instead of a BoltDB
// file. Every row is a JSON payload under an indexed key, the same
// encoding boltstore uses, so the two backends agree on wire shape.
package sqlstore

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/permaweb/cu/persistence"
)

// Open opens (creating if necessary) a SQLite database at path, creates
// its schema if absent, and returns a Store backed by it.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Store is a persistence.Store backed by a SQL database.
type Store struct {
	db *sql.DB
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ persistence.Store = (*Store)(nil)

func createSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cu_process (
			id   TEXT PRIMARY KEY,
			data BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cu_module (
			id   TEXT PRIMARY KEY,
			data BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cu_evaluation (
			process_id TEXT NOT NULL,
			ordinate   TEXT NOT NULL,
			cron       INTEGER NOT NULL,
			message_id TEXT NOT NULL DEFAULT '',
			deep_hash  TEXT NOT NULL DEFAULT '',
			data       BLOB NOT NULL,
			PRIMARY KEY (process_id, ordinate, cron)
		)`,
		`CREATE INDEX IF NOT EXISTS cu_evaluation_message_idx
			ON cu_evaluation (process_id, message_id)`,
		`CREATE INDEX IF NOT EXISTS cu_evaluation_deephash_idx
			ON cu_evaluation (process_id, deep_hash)`,
		`CREATE TABLE IF NOT EXISTS cu_block (
			height INTEGER PRIMARY KEY,
			data   BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cu_checkpoint_record (
			process_id TEXT NOT NULL,
			ordinate   TEXT NOT NULL,
			data       BLOB NOT NULL,
			PRIMARY KEY (process_id, ordinate)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
