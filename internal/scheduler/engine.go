package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/me/dsviz/pkg/model"
)

// Engine holds one process set and the last schedule computed over it.
// An Engine is not safe for concurrent use; give each session its own.
type Engine struct {
	config    Config
	logger    *slog.Logger
	processes []model.Process
	ids       map[string]struct{}
	schedule  *model.Schedule

	// bound on the last completion time: latest arrival plus total burst
	maxArrival int64
	totalBurst int64
}

// NewEngine creates an empty engine. An invalid cfg falls back to DefaultConfig.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if err := cfg.Validate(); err != nil {
		logger.Warn("invalid scheduler config, using defaults", "error", err)
		cfg = DefaultConfig()
	}
	if cfg.Policy == "" {
		cfg.Policy = model.PolicyPreemptive
	}
	return &Engine{
		config: cfg,
		logger: logger.With("component", "scheduler"),
		ids:    make(map[string]struct{}),
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Validate checks a process definition against the engine's rules without
// adding it.
func (e *Engine) Validate(p model.Process) error {
	if p.ID == "" {
		return &model.ValidationError{Field: "id", Message: "must not be empty"}
	}
	if _, dup := e.ids[p.ID]; dup {
		return &model.ValidationError{Field: "id", Message: fmt.Sprintf("process %q already exists", p.ID)}
	}
	if p.ArrivalTime < 0 {
		return &model.ValidationError{Field: "arrival_time", Message: "must be >= 0"}
	}
	if p.BurstTime < 1 {
		return &model.ValidationError{Field: "burst_time", Message: "must be >= 1"}
	}
	if p.ArrivalTime > MaxTime {
		return &model.ValidationError{Field: "arrival_time", Message: fmt.Sprintf("must be <= %d", MaxTime)}
	}
	if p.BurstTime > MaxTime {
		return &model.ValidationError{Field: "burst_time", Message: fmt.Sprintf("must be <= %d", MaxTime)}
	}
	if end := max(e.maxArrival, int64(p.ArrivalTime)) + e.totalBurst + int64(p.BurstTime); end > MaxTime {
		return &model.ValidationError{
			Field:   "burst_time",
			Message: fmt.Sprintf("schedule could run past time %d", MaxTime),
		}
	}
	if p.Priority < e.config.MinPriority || p.Priority > e.config.MaxPriority {
		return &model.ValidationError{
			Field:   "priority",
			Message: fmt.Sprintf("must be between %d and %d", e.config.MinPriority, e.config.MaxPriority),
		}
	}
	return nil
}

// AddProcess validates p and appends it to the pending set.
// A rejected process leaves the engine unchanged.
func (e *Engine) AddProcess(p model.Process) error {
	if err := e.Validate(p); err != nil {
		return err
	}
	e.processes = append(e.processes, p)
	e.ids[p.ID] = struct{}{}
	e.maxArrival = max(e.maxArrival, int64(p.ArrivalTime))
	e.totalBurst += int64(p.BurstTime)
	e.logger.Debug("process added", "id", p.ID, "arrival", p.ArrivalTime, "burst", p.BurstTime, "priority", p.Priority)
	return nil
}

// Has reports whether a process with the given id is pending.
func (e *Engine) Has(id string) bool {
	_, ok := e.ids[id]
	return ok
}

// Len returns the number of pending processes.
func (e *Engine) Len() int {
	return len(e.processes)
}

// Reset discards all processes and any computed schedule.
func (e *Engine) Reset() {
	e.processes = nil
	e.ids = make(map[string]struct{})
	e.schedule = nil
	e.maxArrival, e.totalBurst = 0, 0
	e.logger.Debug("engine reset")
}

// Processes returns the pending processes in submission order, annotated with
// the results of the last computed schedule. Processes added after that
// schedule have nil result fields.
func (e *Engine) Processes() []model.ProcessStatus {
	results := make(map[string]model.ProcessStatus)
	if e.schedule != nil {
		for _, ps := range e.schedule.Processes {
			results[ps.ID] = ps
		}
	}

	out := make([]model.ProcessStatus, 0, len(e.processes))
	for _, p := range e.processes {
		if ps, ok := results[p.ID]; ok {
			out = append(out, ps)
			continue
		}
		out = append(out, model.ProcessStatus{Process: p, RemainingTime: p.BurstTime})
	}
	return out
}

// Schedule returns the last computed schedule, or nil.
func (e *Engine) Schedule() *model.Schedule {
	return e.schedule
}

// Compute runs the simulation over every pending process and stores the
// result. It returns model.ErrEmptyInput when there is nothing to schedule.
// Repeated calls over an unchanged process set yield identical schedules.
func (e *Engine) Compute() (*model.Schedule, error) {
	sched, err := e.Plan()
	if err != nil {
		return nil, err
	}
	e.Commit(sched)
	return sched, nil
}

// Plan simulates the pending processes without storing the result, so a
// caller can persist the schedule before it becomes visible through
// Processes and Schedule.
func (e *Engine) Plan() (*model.Schedule, error) {
	if len(e.processes) == 0 {
		return nil, model.ErrEmptyInput
	}

	procs := make([]model.Process, len(e.processes))
	copy(procs, e.processes)
	return simulate(procs, e.config.Policy), nil
}

// Commit makes sched, as returned by Plan over the current process set, the
// engine's last computed schedule.
func (e *Engine) Commit(sched *model.Schedule) {
	e.schedule = sched
	e.logger.Info("schedule computed",
		"policy", sched.Policy,
		"processes", len(sched.Processes),
		"segments", len(sched.GanttChart),
		"total_time", sched.TotalTime,
	)
}
