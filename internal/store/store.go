// Package store is the durable, transactional state layer for the queue
// engine: job rows, the config table, and the exclusive-transaction
// primitives the leasing protocol relies on for cross-process safety.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite connection pool configured for single-writer,
// multi-reader access across independent OS processes.
type Store struct {
	db *sql.DB
}

// Open creates (if absent) and connects to the store file at path, enabling
// the write-ahead journal and a bounded lock-wait timeout so that the
// leasing protocol's exclusive transactions degrade to a transient error
// instead of blocking forever under contention.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=on&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// The engine relies on exclusive transactions to serialize leasing
	// across processes; a single Go-level connection per process keeps
	// BEGIN IMMEDIATE semantics simple to reason about.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	const jobsTable = `
	CREATE TABLE IF NOT EXISTS jobs (
		id               TEXT PRIMARY KEY,
		command          TEXT NOT NULL,
		state            TEXT NOT NULL,
		priority         INTEGER NOT NULL DEFAULT 0,
		attempts         INTEGER NOT NULL DEFAULT 0,
		max_retries      INTEGER NOT NULL DEFAULT 3,
		backoff_base     REAL NOT NULL DEFAULT 2,
		timeout_seconds  INTEGER NOT NULL DEFAULT 0,
		run_at           DATETIME,
		created_at       DATETIME NOT NULL,
		last_error       TEXT NOT NULL DEFAULT '',
		worker_id        TEXT NOT NULL DEFAULT '',
		leased_at        DATETIME
	);`

	const configTable = `
	CREATE TABLE IF NOT EXISTS config (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	const indexes = `
	CREATE INDEX IF NOT EXISTS idx_jobs_state_runat ON jobs(state, run_at);
	`

	for _, stmt := range []string{jobsTable, configTable, indexes} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init store schema: %w", err)
		}
	}

	for key, value := range map[string]string{
		"max_retries":  "3",
		"backoff_base": "2",
	} {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO config (key, value) VALUES (?, ?)`, key, value,
		); err != nil {
			return fmt.Errorf("seed default config: %w", err)
		}
	}
	return nil
}
