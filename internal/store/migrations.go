package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all dsviz tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		policy     TEXT NOT NULL DEFAULT 'preemptive',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at)`,

	`CREATE TABLE IF NOT EXISTS processes (
		session_id   TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq          INTEGER NOT NULL,
		id           TEXT NOT NULL,
		arrival_time INTEGER NOT NULL,
		burst_time   INTEGER NOT NULL,
		priority     INTEGER NOT NULL,
		PRIMARY KEY (session_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_processes_session_seq ON processes(session_id, seq)`,

	`CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		schedule   TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_session_id ON runs(session_id, created_at)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
