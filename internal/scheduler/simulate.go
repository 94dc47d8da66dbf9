package scheduler

import (
	"fmt"

	"github.com/me/dsviz/pkg/model"
)

// runState is the mutable per-process state of one simulation.
type runState struct {
	proc       model.Process
	order      int // submission order
	remaining  int
	completion int
}

func (r *runState) done() bool { return r.remaining == 0 }

// higher reports whether a should be chosen over b. running is the process
// that held the CPU on the previous tick, or nil.
func higher(a, b, running *runState) bool {
	if a.proc.Priority != b.proc.Priority {
		return a.proc.Priority < b.proc.Priority
	}
	if a.proc.ArrivalTime != b.proc.ArrivalTime {
		return a.proc.ArrivalTime < b.proc.ArrivalTime
	}
	if a == running || b == running {
		return a == running
	}
	return a.order < b.order
}

// pick returns the eligible process to run at now, or nil if none has arrived.
func pick(states []*runState, now int, running *runState) *runState {
	var best *runState
	for _, s := range states {
		if s.done() || s.proc.ArrivalTime > now {
			continue
		}
		if best == nil || higher(s, best, running) {
			best = s
		}
	}
	return best
}

// nextArrival returns the earliest arrival strictly after now among
// unfinished processes.
func nextArrival(states []*runState, now int) (int, bool) {
	next, found := 0, false
	for _, s := range states {
		if s.done() || s.proc.ArrivalTime <= now {
			continue
		}
		if !found || s.proc.ArrivalTime < next {
			next, found = s.proc.ArrivalTime, true
		}
	}
	return next, found
}

// simulate runs procs to completion under policy. The eligible set only
// changes on arrivals and completions, so jumping between those events yields
// the same segment boundaries as stepping one tick at a time.
func simulate(procs []model.Process, policy model.Policy) *model.Schedule {
	states := make([]*runState, len(procs))
	for i, p := range procs {
		states[i] = &runState{proc: p, order: i, remaining: p.BurstTime}
	}

	var (
		now       int
		completed int
		running   *runState
		gantt     []model.GanttSegment
		steps     []string
	)

	for completed < len(states) {
		next := pick(states, now, running)
		if next == nil {
			arrival, ok := nextArrival(states, now)
			if !ok {
				break
			}
			steps = append(steps, fmt.Sprintf("time %d: idle, waiting for arrival until %d", now, arrival))
			running = nil
			now = arrival
			continue
		}

		switch {
		case next == running:
			steps = append(steps, fmt.Sprintf("time %d: process %s continued (remaining %d)", now, next.proc.ID, next.remaining))
		case running != nil:
			steps = append(steps, fmt.Sprintf("time %d: process %s selected (priority %d, remaining %d), preempting %s",
				now, next.proc.ID, next.proc.Priority, next.remaining, running.proc.ID))
		default:
			steps = append(steps, fmt.Sprintf("time %d: process %s selected (priority %d, remaining %d)",
				now, next.proc.ID, next.proc.Priority, next.remaining))
		}

		slice := next.remaining
		if policy.Preemptive() {
			if arrival, ok := nextArrival(states, now); ok && arrival-now < slice {
				slice = arrival - now
			}
		}

		if n := len(gantt); n > 0 && gantt[n-1].ProcessID == next.proc.ID && gantt[n-1].EndTime == now {
			gantt[n-1].EndTime += slice
		} else {
			gantt = append(gantt, model.GanttSegment{
				ProcessID: next.proc.ID,
				StartTime: now,
				EndTime:   now + slice,
				Priority:  next.proc.Priority,
			})
		}

		now += slice
		next.remaining -= slice
		running = next

		if next.done() {
			next.completion = now
			completed++
			running = nil
			tat := next.completion - next.proc.ArrivalTime
			steps = append(steps, fmt.Sprintf("time %d: process %s completed (CT=%d, TAT=%d, WT=%d)",
				now, next.proc.ID, next.completion, tat, tat-next.proc.BurstTime))
		}
	}

	return summarize(states, policy, gantt, steps, now)
}

// summarize derives per-process metrics and averages.
func summarize(states []*runState, policy model.Policy, gantt []model.GanttSegment, steps []string, end int) *model.Schedule {
	sched := &model.Schedule{
		Policy:         policy,
		Processes:      make([]model.ProcessStatus, len(states)),
		GanttChart:     gantt,
		ExecutionSteps: steps,
		TotalTime:      end,
	}

	var sumWait, sumTAT int
	for i, s := range states {
		completion := s.completion
		turnaround := completion - s.proc.ArrivalTime
		waiting := turnaround - s.proc.BurstTime
		sched.Processes[i] = model.ProcessStatus{
			Process:        s.proc,
			RemainingTime:  s.remaining,
			CompletionTime: &completion,
			TurnaroundTime: &turnaround,
			WaitingTime:    &waiting,
		}
		sumWait += waiting
		sumTAT += turnaround
	}

	if n := len(states); n > 0 {
		sched.AvgWaitingTime = float64(sumWait) / float64(n)
		sched.AvgTurnaroundTime = float64(sumTAT) / float64(n)
	}
	return sched
}
