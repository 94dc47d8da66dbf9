package scheduler

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/me/dsviz/pkg/model"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustAdd(t *testing.T, e *Engine, procs ...model.Process) {
	t.Helper()
	for _, p := range procs {
		if err := e.AddProcess(p); err != nil {
			t.Fatalf("AddProcess(%+v): %v", p, err)
		}
	}
}

func mustCompute(t *testing.T, e *Engine) *model.Schedule {
	t.Helper()
	s, err := e.Compute()
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return s
}

func statusOf(t *testing.T, s *model.Schedule, id string) model.ProcessStatus {
	t.Helper()
	for _, ps := range s.Processes {
		if ps.ID == id {
			return ps
		}
	}
	t.Fatalf("process %s not in schedule", id)
	return model.ProcessStatus{}
}

func TestAddProcess_Validation(t *testing.T) {
	tests := []struct {
		name  string
		proc  model.Process
		field string
	}{
		{"empty id", model.Process{ArrivalTime: 0, BurstTime: 1, Priority: 1}, "id"},
		{"negative arrival", model.Process{ID: "P1", ArrivalTime: -1, BurstTime: 1, Priority: 1}, "arrival_time"},
		{"zero burst", model.Process{ID: "P1", ArrivalTime: 0, BurstTime: 0, Priority: 1}, "burst_time"},
		{"priority too small", model.Process{ID: "P1", BurstTime: 1, Priority: 0}, "priority"},
		{"priority too large", model.Process{ID: "P1", BurstTime: 1, Priority: 4}, "priority"},
		{"arrival past time limit", model.Process{ID: "P1", ArrivalTime: math.MaxInt - 1, BurstTime: 5, Priority: 1}, "arrival_time"},
		{"burst past time limit", model.Process{ID: "P1", BurstTime: MaxTime + 1, Priority: 1}, "burst_time"},
		{"completion past time limit", model.Process{ID: "P1", ArrivalTime: MaxTime - 2, BurstTime: 5, Priority: 1}, "burst_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEngine(t)
			err := e.AddProcess(tt.proc)
			if !errors.Is(err, model.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
			var vErr *model.ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.field {
				t.Errorf("field = %v, want %q", err, tt.field)
			}
			if e.Len() != 0 {
				t.Errorf("pending set size = %d, want 0", e.Len())
			}
		})
	}
}

func TestAddProcess_DuplicateID(t *testing.T) {
	e := testEngine(t)
	mustAdd(t, e, model.Process{ID: "P1", BurstTime: 3, Priority: 1})

	err := e.AddProcess(model.Process{ID: "P1", BurstTime: 2, Priority: 2})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if e.Len() != 1 {
		t.Errorf("pending set size = %d, want 1", e.Len())
	}
}

func TestAddProcess_RejectZeroBurstKeepsSet(t *testing.T) {
	e := testEngine(t)
	mustAdd(t, e, model.Process{ID: "P1", BurstTime: 3, Priority: 1})
	before := e.Processes()

	if err := e.AddProcess(model.Process{ID: "P2", BurstTime: 0, Priority: 1}); err == nil {
		t.Fatal("expected error for burst_time=0")
	}
	if !reflect.DeepEqual(before, e.Processes()) {
		t.Error("pending set changed after rejected add")
	}
}

func TestAddProcess_CumulativeTimeLimit(t *testing.T) {
	e := testEngine(t)
	mustAdd(t, e,
		model.Process{ID: "P1", ArrivalTime: MaxTime - 10, BurstTime: 4, Priority: 1},
		model.Process{ID: "P2", ArrivalTime: 0, BurstTime: 6, Priority: 2},
	)

	err := e.AddProcess(model.Process{ID: "P3", ArrivalTime: 1, BurstTime: 1, Priority: 1})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if e.Len() != 2 {
		t.Errorf("pending set size = %d, want 2", e.Len())
	}

	s := mustCompute(t, e)
	if s.TotalTime != MaxTime-6 {
		t.Errorf("TotalTime = %d, want %d", s.TotalTime, MaxTime-6)
	}
	for _, seg := range s.GanttChart {
		if seg.EndTime < seg.StartTime {
			t.Errorf("segment %+v ends before it starts", seg)
		}
	}

	e.Reset()
	mustAdd(t, e, model.Process{ID: "P3", ArrivalTime: MaxTime - 1, BurstTime: 1, Priority: 1})
}

func TestCompute_Empty(t *testing.T) {
	e := testEngine(t)
	s, err := e.Compute()
	if !errors.Is(err, model.ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
	if s != nil {
		t.Error("expected nil schedule on failure")
	}
	if e.Schedule() != nil {
		t.Error("failed compute should not store a schedule")
	}
}

func TestCompute_SingleProcess(t *testing.T) {
	e := testEngine(t)
	mustAdd(t, e, model.Process{ID: "P1", ArrivalTime: 0, BurstTime: 5, Priority: 1})
	s := mustCompute(t, e)

	want := []model.GanttSegment{{ProcessID: "P1", StartTime: 0, EndTime: 5, Priority: 1}}
	if !reflect.DeepEqual(s.GanttChart, want) {
		t.Errorf("gantt = %+v, want %+v", s.GanttChart, want)
	}
	ps := statusOf(t, s, "P1")
	if *ps.WaitingTime != 0 || *ps.TurnaroundTime != 5 || *ps.CompletionTime != 5 {
		t.Errorf("P1 = CT %d TAT %d WT %d, want 5/5/0", *ps.CompletionTime, *ps.TurnaroundTime, *ps.WaitingTime)
	}
	if s.TotalTime != 5 {
		t.Errorf("total_time = %d, want 5", s.TotalTime)
	}
}

func TestCompute_Preemption(t *testing.T) {
	e := testEngine(t)
	mustAdd(t, e,
		model.Process{ID: "P1", ArrivalTime: 0, BurstTime: 4, Priority: 2},
		model.Process{ID: "P2", ArrivalTime: 2, BurstTime: 2, Priority: 1},
	)
	s := mustCompute(t, e)

	want := []model.GanttSegment{
		{ProcessID: "P1", StartTime: 0, EndTime: 2, Priority: 2},
		{ProcessID: "P2", StartTime: 2, EndTime: 4, Priority: 1},
		{ProcessID: "P1", StartTime: 4, EndTime: 6, Priority: 2},
	}
	if !reflect.DeepEqual(s.GanttChart, want) {
		t.Errorf("gantt = %+v, want %+v", s.GanttChart, want)
	}

	p1 := statusOf(t, s, "P1")
	if *p1.CompletionTime != 6 || *p1.WaitingTime != 2 {
		t.Errorf("P1 CT=%d WT=%d, want 6/2", *p1.CompletionTime, *p1.WaitingTime)
	}
	p2 := statusOf(t, s, "P2")
	if *p2.CompletionTime != 4 || *p2.WaitingTime != 0 {
		t.Errorf("P2 CT=%d WT=%d, want 4/0", *p2.CompletionTime, *p2.WaitingTime)
	}
	if s.AvgWaitingTime != 1 {
		t.Errorf("avg waiting = %v, want 1", s.AvgWaitingTime)
	}
	if s.AvgTurnaroundTime != 4 {
		t.Errorf("avg turnaround = %v, want 4", s.AvgTurnaroundTime)
	}
	if !containsStep(s.ExecutionSteps, "time 2: process P2 selected") {
		t.Errorf("missing preemption step in %q", s.ExecutionSteps)
	}
}

func TestCompute_Gap(t *testing.T) {
	e := testEngine(t)
	mustAdd(t, e, model.Process{ID: "P1", ArrivalTime: 3, BurstTime: 2, Priority: 1})
	s := mustCompute(t, e)

	if len(s.GanttChart) != 1 || s.GanttChart[0].StartTime != 3 || s.GanttChart[0].EndTime != 5 {
		t.Errorf("gantt = %+v, want single [3,5)", s.GanttChart)
	}
	if len(s.ExecutionSteps) == 0 || s.ExecutionSteps[0] != "time 0: idle, waiting for arrival until 3" {
		t.Errorf("first step = %q, want idle 0..3", s.ExecutionSteps)
	}
	ps := statusOf(t, s, "P1")
	if *ps.WaitingTime != 0 || *ps.TurnaroundTime != 2 {
		t.Errorf("P1 WT=%d TAT=%d, want 0/2", *ps.WaitingTime, *ps.TurnaroundTime)
	}
}

func TestCompute_GapBetweenProcesses(t *testing.T) {
	e := testEngine(t)
	mustAdd(t, e,
		model.Process{ID: "A", ArrivalTime: 0, BurstTime: 2, Priority: 1},
		model.Process{ID: "B", ArrivalTime: 5, BurstTime: 1, Priority: 3},
	)
	s := mustCompute(t, e)
	want := []model.GanttSegment{
		{ProcessID: "A", StartTime: 0, EndTime: 2, Priority: 1},
		{ProcessID: "B", StartTime: 5, EndTime: 6, Priority: 3},
	}
	if !reflect.DeepEqual(s.GanttChart, want) {
		t.Errorf("gantt = %+v, want %+v", s.GanttChart, want)
	}
	if !containsStep(s.ExecutionSteps, "time 2: idle, waiting for arrival until 5") {
		t.Errorf("missing idle step in %q", s.ExecutionSteps)
	}
}

func TestCompute_TieBreak(t *testing.T) {
	tests := []struct {
		name  string
		procs []model.Process
		want  []string // process id per segment
	}{
		{
			name: "earliest arrival wins",
			procs: []model.Process{
				{ID: "late", ArrivalTime: 1, BurstTime: 2, Priority: 1},
				{ID: "early", ArrivalTime: 0, BurstTime: 2, Priority: 1},
			},
			want: []string{"early", "late"},
		},
		{
			name: "submission order on full tie",
			procs: []model.Process{
				{ID: "first", ArrivalTime: 0, BurstTime: 2, Priority: 2},
				{ID: "second", ArrivalTime: 0, BurstTime: 2, Priority: 2},
			},
			want: []string{"first", "second"},
		},
		{
			name: "equal priority arrival does not preempt",
			procs: []model.Process{
				{ID: "A", ArrivalTime: 0, BurstTime: 4, Priority: 2},
				{ID: "B", ArrivalTime: 1, BurstTime: 1, Priority: 2},
			},
			want: []string{"A", "B"},
		},
		{
			name: "lower priority arrival does not preempt",
			procs: []model.Process{
				{ID: "A", ArrivalTime: 0, BurstTime: 3, Priority: 1},
				{ID: "B", ArrivalTime: 1, BurstTime: 1, Priority: 3},
			},
			want: []string{"A", "B"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEngine(t)
			mustAdd(t, e, tt.procs...)
			s := mustCompute(t, e)
			var got []string
			for _, seg := range s.GanttChart {
				got = append(got, seg.ProcessID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("segments = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompute_ContinuedStep(t *testing.T) {
	e := testEngine(t)
	mustAdd(t, e,
		model.Process{ID: "A", ArrivalTime: 0, BurstTime: 3, Priority: 1},
		model.Process{ID: "B", ArrivalTime: 1, BurstTime: 1, Priority: 3},
	)
	s := mustCompute(t, e)
	if !containsStep(s.ExecutionSteps, "time 1: process A continued") {
		t.Errorf("missing continued step in %q", s.ExecutionSteps)
	}
	if len(s.GanttChart) != 2 {
		t.Errorf("A's ticks should merge into one segment, got %+v", s.GanttChart)
	}
}

func TestCompute_NonPreemptive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = model.PolicyNonPreemptive
	e := NewEngine(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mustAdd(t, e,
		model.Process{ID: "P1", ArrivalTime: 0, BurstTime: 4, Priority: 2},
		model.Process{ID: "P2", ArrivalTime: 2, BurstTime: 2, Priority: 1},
	)
	s := mustCompute(t, e)
	want := []model.GanttSegment{
		{ProcessID: "P1", StartTime: 0, EndTime: 4, Priority: 2},
		{ProcessID: "P2", StartTime: 4, EndTime: 6, Priority: 1},
	}
	if !reflect.DeepEqual(s.GanttChart, want) {
		t.Errorf("gantt = %+v, want %+v", s.GanttChart, want)
	}
	if s.Policy != model.PolicyNonPreemptive {
		t.Errorf("policy = %q", s.Policy)
	}
	if p2 := statusOf(t, s, "P2"); *p2.WaitingTime != 2 {
		t.Errorf("P2 WT = %d, want 2", *p2.WaitingTime)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	e := testEngine(t)
	mustAdd(t, e,
		model.Process{ID: "P1", ArrivalTime: 0, BurstTime: 6, Priority: 3},
		model.Process{ID: "P2", ArrivalTime: 1, BurstTime: 3, Priority: 2},
		model.Process{ID: "P3", ArrivalTime: 2, BurstTime: 1, Priority: 1},
		model.Process{ID: "P4", ArrivalTime: 9, BurstTime: 2, Priority: 2},
	)
	first := mustCompute(t, e)
	second := mustCompute(t, e)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("schedules differ:\n%+v\n%+v", first, second)
	}
}

func TestPlan_DoesNotCommit(t *testing.T) {
	e := testEngine(t)
	mustAdd(t, e, model.Process{ID: "P1", BurstTime: 3, Priority: 1})

	planned, err := e.Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if e.Schedule() != nil || e.Processes()[0].Executed() {
		t.Error("Plan exposed its result before Commit")
	}

	e.Commit(planned)
	if e.Schedule() != planned || !e.Processes()[0].Executed() {
		t.Error("Commit did not store the schedule")
	}
	if _, err := testEngine(t).Plan(); !errors.Is(err, model.ErrEmptyInput) {
		t.Errorf("Plan on empty engine err = %v", err)
	}
}

func TestProcesses_ResultFields(t *testing.T) {
	e := testEngine(t)
	mustAdd(t, e, model.Process{ID: "P1", BurstTime: 2, Priority: 1})

	before := e.Processes()
	if before[0].Executed() || before[0].WaitingTime != nil {
		t.Error("result fields should be nil before compute")
	}
	if before[0].RemainingTime != 2 {
		t.Errorf("remaining = %d, want 2", before[0].RemainingTime)
	}

	mustCompute(t, e)
	mustAdd(t, e, model.Process{ID: "P2", BurstTime: 1, Priority: 1})

	got := e.Processes()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Executed() || *got[0].CompletionTime != 2 {
		t.Errorf("P1 should keep its results, got %+v", got[0])
	}
	if got[1].Executed() {
		t.Error("P2 added after compute should have no results")
	}
	if len(e.Schedule().Processes) != 1 {
		t.Error("adding a process must not alter the computed schedule")
	}
}

func TestReset(t *testing.T) {
	e := testEngine(t)
	mustAdd(t, e, model.Process{ID: "P1", BurstTime: 2, Priority: 1})
	mustCompute(t, e)

	e.Reset()
	if e.Len() != 0 || e.Schedule() != nil || len(e.Processes()) != 0 {
		t.Error("reset should discard processes and schedule")
	}
	// Ids are free again after a reset.
	mustAdd(t, e, model.Process{ID: "P1", BurstTime: 1, Priority: 1})
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	e := NewEngine(Config{MinPriority: 5, MaxPriority: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if got := e.Config(); got != DefaultConfig() {
		t.Errorf("config = %+v, want defaults", got)
	}
}

// Properties over random process sets: metric identities, segment totals,
// ordering, and agreement with a one-tick-at-a-time reference simulation.
func TestCompute_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, policy := range []model.Policy{model.PolicyPreemptive, model.PolicyNonPreemptive} {
		for iter := 0; iter < 200; iter++ {
			procs := randomProcesses(rng, 1+rng.Intn(8))
			cfg := DefaultConfig()
			cfg.Policy = policy
			e := NewEngine(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
			mustAdd(t, e, procs...)
			s := mustCompute(t, e)

			checkInvariants(t, procs, s)

			if want := referenceGantt(procs, policy); !reflect.DeepEqual(s.GanttChart, want) {
				t.Fatalf("policy %s procs %+v:\n got  %+v\n want %+v", policy, procs, s.GanttChart, want)
			}
		}
	}
}

func checkInvariants(t *testing.T, procs []model.Process, s *model.Schedule) {
	t.Helper()
	for i, seg := range s.GanttChart {
		if seg.Duration() <= 0 {
			t.Fatalf("empty segment %+v", seg)
		}
		if i > 0 {
			prev := s.GanttChart[i-1]
			if seg.StartTime < prev.EndTime {
				t.Fatalf("segments overlap or unsorted: %+v then %+v", prev, seg)
			}
			if seg.StartTime == prev.EndTime && seg.ProcessID == prev.ProcessID {
				t.Fatalf("adjacent segments not merged: %+v then %+v", prev, seg)
			}
		}
	}
	for _, p := range procs {
		ps := statusOf(t, s, p.ID)
		if *ps.TurnaroundTime-*ps.WaitingTime != p.BurstTime {
			t.Fatalf("%s: TAT-WT = %d, want burst %d", p.ID, *ps.TurnaroundTime-*ps.WaitingTime, p.BurstTime)
		}
		if *ps.WaitingTime < 0 {
			t.Fatalf("%s: negative waiting time", p.ID)
		}
		total := 0
		for _, seg := range s.Segments(p.ID) {
			if seg.StartTime < p.ArrivalTime {
				t.Fatalf("%s runs before arrival: %+v", p.ID, seg)
			}
			total += seg.Duration()
		}
		if total != p.BurstTime {
			t.Fatalf("%s: segment total = %d, want %d", p.ID, total, p.BurstTime)
		}
	}
}

func randomProcesses(rng *rand.Rand, n int) []model.Process {
	procs := make([]model.Process, n)
	for i := range procs {
		procs[i] = model.Process{
			ID:          "P" + string(rune('A'+i)),
			ArrivalTime: rng.Intn(10),
			BurstTime:   1 + rng.Intn(5),
			Priority:    1 + rng.Intn(3),
		}
	}
	return procs
}

// referenceGantt advances one tick at a time and merges consecutive ticks.
func referenceGantt(procs []model.Process, policy model.Policy) []model.GanttSegment {
	remaining := make([]int, len(procs))
	left := 0
	for i, p := range procs {
		remaining[i] = p.BurstTime
		left += p.BurstTime
	}
	var gantt []model.GanttSegment
	running := -1
	for now := 0; left > 0; now++ {
		if !policy.Preemptive() && running >= 0 && remaining[running] > 0 {
			// keep running
		} else {
			best := -1
			for i, p := range procs {
				if remaining[i] == 0 || p.ArrivalTime > now {
					continue
				}
				if best < 0 || refHigher(procs, i, best, running) {
					best = i
				}
			}
			running = best
		}
		if running < 0 {
			continue
		}
		remaining[running]--
		left--
		p := procs[running]
		if n := len(gantt); n > 0 && gantt[n-1].ProcessID == p.ID && gantt[n-1].EndTime == now {
			gantt[n-1].EndTime++
		} else {
			gantt = append(gantt, model.GanttSegment{ProcessID: p.ID, StartTime: now, EndTime: now + 1, Priority: p.Priority})
		}
		if remaining[running] == 0 {
			running = -1
		}
	}
	return gantt
}

func refHigher(procs []model.Process, a, b, running int) bool {
	if procs[a].Priority != procs[b].Priority {
		return procs[a].Priority < procs[b].Priority
	}
	if procs[a].ArrivalTime != procs[b].ArrivalTime {
		return procs[a].ArrivalTime < procs[b].ArrivalTime
	}
	if a == running || b == running {
		return a == running
	}
	return a < b
}

func containsStep(steps []string, prefix string) bool {
	for _, s := range steps {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
