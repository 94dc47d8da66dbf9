// Package session gives every client its own scheduler engine, persisted
// through the store so process lists survive a server restart.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/me/dsviz/internal/logging"
	"github.com/me/dsviz/internal/scheduler"
	"github.com/me/dsviz/internal/store"
	"github.com/me/dsviz/pkg/model"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// entry is one live session. mu serialises access to engine and evicted.
type entry struct {
	mu      sync.Mutex
	id      string
	engine  *scheduler.Engine
	evicted bool
}

// Manager owns the engines of all live sessions.
type Manager struct {
	store  store.Store
	config scheduler.Config
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewManager creates a session manager. Every engine it creates uses cfg.
func NewManager(st store.Store, cfg scheduler.Config, logger *slog.Logger) *Manager {
	return &Manager{
		store:    st,
		config:   cfg,
		logger:   logger.With("component", "session"),
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Open returns the id of a live session, loading it from the store or
// creating it as needed. An empty id creates a new session with a generated
// id. created reports whether the session did not exist before.
func (m *Manager) Open(ctx context.Context, id string) (sessionID string, created bool, err error) {
	if id == "" {
		id = uuid.New().String()
	} else if !validID.MatchString(id) {
		return "", false, &model.ValidationError{Field: "session", Message: "must be 1-64 letters, digits, '-' or '_'"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		return id, false, nil
	}

	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return "", false, fmt.Errorf("get session %s: %w", id, err)
	}

	engine := scheduler.NewEngine(m.config, m.logger)
	if sess == nil {
		now := m.now().UTC()
		sess = &model.Session{ID: id, Policy: m.config.Policy, CreatedAt: now, UpdatedAt: now}
		if err := m.store.CreateSession(ctx, sess); err != nil {
			return "", false, fmt.Errorf("create session %s: %w", id, err)
		}
		created = true
		m.logger.Info("session created", "session", id)
	} else if err := m.hydrate(ctx, id, engine); err != nil {
		return "", false, err
	}

	m.sessions[id] = &entry{id: id, engine: engine}
	return id, created, nil
}

// hydrate replays the stored process list into engine.
func (m *Manager) hydrate(ctx context.Context, id string, engine *scheduler.Engine) error {
	procs, err := m.store.ListProcesses(ctx, id)
	if err != nil {
		return fmt.Errorf("list processes for %s: %w", id, err)
	}
	for _, p := range procs {
		if err := engine.AddProcess(p); err != nil {
			// Stored under a wider priority range than the current config.
			m.logger.Warn("dropping stored process", "session", id, "process", p.ID, logging.ErrAttr(err))
		}
	}
	m.logger.Info("session restored", "session", id, "processes", engine.Len())
	return nil
}

// with runs fn on the session's engine while holding its lock.
func (m *Manager) with(ctx context.Context, id string, fn func(e *entry) error) error {
	m.mu.Lock()
	ent, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return model.NewNotFoundError("Session", id)
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.evicted {
		return model.NewNotFoundError("Session", id)
	}
	if err := fn(ent); err != nil {
		return err
	}
	if err := m.store.TouchSession(ctx, id, m.now()); err != nil {
		m.logger.Warn("touch session failed", "session", id, logging.ErrAttr(err))
	}
	return nil
}

// AddProcess validates p, assigns a default "P<n>" id when p.ID is empty,
// persists it and appends it to the session's pending set.
func (m *Manager) AddProcess(ctx context.Context, id string, p model.Process) (model.Process, error) {
	err := m.with(ctx, id, func(ent *entry) error {
		if p.ID == "" {
			p.ID = defaultID(ent.engine)
		}
		if err := ent.engine.Validate(p); err != nil {
			return err
		}
		if err := m.store.AddProcess(ctx, id, p); err != nil {
			return fmt.Errorf("store process: %w", err)
		}
		return ent.engine.AddProcess(p)
	})
	return p, err
}

// defaultID returns the first free "P<n>" label with n > len(processes).
func defaultID(e *scheduler.Engine) string {
	for n := e.Len() + 1; ; n++ {
		if id := fmt.Sprintf("P%d", n); !e.Has(id) {
			return id
		}
	}
}

// Reset discards the session's processes and schedule. The run history is kept.
func (m *Manager) Reset(ctx context.Context, id string) error {
	return m.with(ctx, id, func(ent *entry) error {
		if err := m.store.ClearProcesses(ctx, id); err != nil {
			return fmt.Errorf("clear processes: %w", err)
		}
		ent.engine.Reset()
		return nil
	})
}

// Processes lists the session's processes with their latest results.
func (m *Manager) Processes(ctx context.Context, id string) ([]model.ProcessStatus, error) {
	var out []model.ProcessStatus
	err := m.with(ctx, id, func(ent *entry) error {
		out = ent.engine.Processes()
		return nil
	})
	return out, err
}

// Compute schedules the session's processes and records the run. The
// schedule only becomes visible once the run is stored.
func (m *Manager) Compute(ctx context.Context, id string) (*model.Schedule, error) {
	var sched *model.Schedule
	err := m.with(ctx, id, func(ent *entry) error {
		s, err := ent.engine.Plan()
		if err != nil {
			return err
		}
		run := &model.Run{
			ID:        "run_" + uuid.New().String(),
			SessionID: id,
			Schedule:  s,
			CreatedAt: m.now().UTC(),
		}
		if err := m.store.CreateRun(ctx, run); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		ent.engine.Commit(s)
		sched = s
		return nil
	})
	return sched, err
}

// Runs returns up to limit of the session's most recent schedules.
func (m *Manager) Runs(ctx context.Context, id string, limit int) ([]*model.Run, error) {
	var runs []*model.Run
	err := m.with(ctx, id, func(ent *entry) error {
		var err error
		runs, err = m.store.ListRuns(ctx, id, limit)
		return err
	})
	return runs, err
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle removes sessions not used since before, from memory and the store.
// Each session is locked and its idle state re-checked by the store, so a
// session touched after the listing survives.
func (m *Manager) EvictIdle(ctx context.Context, before time.Time) (int, error) {
	idle, err := m.store.ListIdleSessions(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("list idle sessions: %w", err)
	}

	evicted := 0
	for _, sess := range idle {
		ok, err := m.evict(ctx, sess.ID, before)
		if err != nil {
			return evicted, fmt.Errorf("delete session %s: %w", sess.ID, err)
		}
		if !ok {
			m.logger.Debug("session active again, kept", "session", sess.ID)
			continue
		}
		evicted++
		m.logger.Info("session evicted", "session", sess.ID, "idle_since", sess.UpdatedAt)
	}
	return evicted, nil
}

// evict deletes one session if it is still idle, holding its lock so no
// request runs against it meanwhile.
func (m *Manager) evict(ctx context.Context, id string, before time.Time) (bool, error) {
	m.mu.Lock()
	ent := m.sessions[id]
	m.mu.Unlock()

	if ent != nil {
		ent.mu.Lock()
		defer ent.mu.Unlock()
	}

	ok, err := m.store.DeleteIdleSession(ctx, id, before)
	if err != nil || !ok {
		return false, err
	}
	if ent != nil {
		ent.evicted = true
		m.mu.Lock()
		if m.sessions[id] == ent {
			delete(m.sessions, id)
		}
		m.mu.Unlock()
	}
	return true, nil
}
