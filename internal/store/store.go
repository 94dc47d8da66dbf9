package store

import (
	"context"
	"time"

	"github.com/me/dsviz/pkg/model"
)

// Store defines the persistence layer for scheduler sessions.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, sess *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	// DeleteIdleSession deletes the session only if it was last updated before
	// the given time, and reports whether a row was removed.
	DeleteIdleSession(ctx context.Context, id string, before time.Time) (bool, error)
	ListIdleSessions(ctx context.Context, before time.Time) ([]*model.Session, error)

	// Processes, in submission order
	AddProcess(ctx context.Context, sessionID string, p model.Process) error
	ListProcesses(ctx context.Context, sessionID string) ([]model.Process, error)
	ClearProcesses(ctx context.Context, sessionID string) error

	// Schedule history
	CreateRun(ctx context.Context, run *model.Run) error
	ListRuns(ctx context.Context, sessionID string, limit int) ([]*model.Run, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
