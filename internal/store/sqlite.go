package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/dsviz/pkg/model"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Session operations ---

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *model.Session) error {
	s.logger.Debug("sql", "op", "insert", "table", "sessions", "id", sess.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, policy, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		sess.ID, string(sess.Policy),
		sess.CreatedAt.UTC().Format(timeLayout), sess.UpdatedAt.UTC().Format(timeLayout),
	)
	return err
}

// GetSession returns nil, nil when the session does not exist.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s.logger.Debug("sql", "op", "select", "table", "sessions", "id", id)

	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT id, policy, created_at, updated_at FROM sessions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sess, err
}

func (s *SQLiteStore) TouchSession(ctx context.Context, id string, at time.Time) error {
	s.logger.Debug("sql", "op", "touch", "table", "sessions", "id", id)

	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, at.UTC().Format(timeLayout), id)
	return err
}

func (s *SQLiteStore) DeleteIdleSession(ctx context.Context, id string, before time.Time) (bool, error) {
	s.logger.Debug("sql", "op", "delete_idle", "table", "sessions", "id", id, "before", before)

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ? AND updated_at < ?`, id, before.UTC().Format(timeLayout))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListIdleSessions returns sessions last updated before the given time.
func (s *SQLiteStore) ListIdleSessions(ctx context.Context, before time.Time) ([]*model.Session, error) {
	s.logger.Debug("sql", "op", "list_idle", "table", "sessions", "before", before)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, policy, created_at, updated_at FROM sessions WHERE updated_at < ? ORDER BY updated_at`,
		before.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*model.Session, error) {
	var sess model.Session
	var policy, createdAt, updatedAt string
	if err := row.Scan(&sess.ID, &policy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	sess.Policy = model.Policy(policy)
	sess.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	sess.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &sess, nil
}

// --- Process operations ---

func (s *SQLiteStore) AddProcess(ctx context.Context, sessionID string, p model.Process) error {
	s.logger.Debug("sql", "op", "insert", "table", "processes", "session_id", sessionID, "id", p.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processes (session_id, seq, id, arrival_time, burst_time, priority)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM processes WHERE session_id = ?), ?, ?, ?, ?)`,
		sessionID, sessionID, p.ID, p.ArrivalTime, p.BurstTime, p.Priority,
	)
	return err
}

func (s *SQLiteStore) ListProcesses(ctx context.Context, sessionID string) ([]model.Process, error) {
	s.logger.Debug("sql", "op", "list", "table", "processes", "session_id", sessionID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, arrival_time, burst_time, priority FROM processes WHERE session_id = ? ORDER BY seq`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Process
	for rows.Next() {
		var p model.Process
		if err := rows.Scan(&p.ID, &p.ArrivalTime, &p.BurstTime, &p.Priority); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ClearProcesses(ctx context.Context, sessionID string) error {
	s.logger.Debug("sql", "op", "delete", "table", "processes", "session_id", sessionID)

	_, err := s.db.ExecContext(ctx, `DELETE FROM processes WHERE session_id = ?`, sessionID)
	return err
}

// --- Run operations ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	scheduleJSON, err := json.Marshal(run.Schedule)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, session_id, schedule, created_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.SessionID, string(scheduleJSON), run.CreatedAt.UTC().Format(timeLayout),
	)
	return err
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, sessionID string, limit int) ([]*model.Run, error) {
	s.logger.Debug("sql", "op", "list", "table", "runs", "session_id", sessionID, "limit", limit)

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, schedule, created_at FROM runs
		 WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Run
	for rows.Next() {
		var run model.Run
		var scheduleJSON, createdAt string
		if err := rows.Scan(&run.ID, &run.SessionID, &scheduleJSON, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(scheduleJSON), &run.Schedule); err != nil {
			return nil, fmt.Errorf("unmarshal schedule: %w", err)
		}
		run.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, &run)
	}
	return out, rows.Err()
}
