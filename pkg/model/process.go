package model

// Process is a unit of work submitted to the scheduler.
// It is immutable once a schedule has been computed over it.
type Process struct {
	ID          string `json:"id" yaml:"id"`
	ArrivalTime int    `json:"arrival_time" yaml:"arrival_time"`
	BurstTime   int    `json:"burst_time" yaml:"burst_time"`
	Priority    int    `json:"priority" yaml:"priority"`
}

// ProcessStatus is a Process together with the result fields of the last
// computed schedule. Result fields stay nil until a schedule covers the process.
type ProcessStatus struct {
	Process
	RemainingTime  int  `json:"remaining_time"`
	CompletionTime *int `json:"completion_time"`
	WaitingTime    *int `json:"waiting_time"`
	TurnaroundTime *int `json:"turnaround_time"`
}

// Executed reports whether the process has result fields.
func (p ProcessStatus) Executed() bool {
	return p.CompletionTime != nil
}

// GanttSegment is a maximal interval [StartTime, EndTime) during which one
// process held the CPU.
type GanttSegment struct {
	ProcessID string `json:"process_id"`
	StartTime int    `json:"start_time"`
	EndTime   int    `json:"end_time"`
	Priority  int    `json:"priority"`
}

// Duration returns the number of ticks covered by the segment.
func (g GanttSegment) Duration() int {
	return g.EndTime - g.StartTime
}

// Schedule is the read-only result of a scheduling run.
type Schedule struct {
	Policy            Policy          `json:"policy"`
	Processes         []ProcessStatus `json:"processes"`
	GanttChart        []GanttSegment  `json:"gantt_chart"`
	ExecutionSteps    []string        `json:"execution_steps"`
	AvgWaitingTime    float64         `json:"avg_waiting_time"`
	AvgTurnaroundTime float64         `json:"avg_turnaround_time"`
	TotalTime         int             `json:"total_time"`
}

// Segments returns the Gantt segments belonging to processID, in order.
func (s *Schedule) Segments(processID string) []GanttSegment {
	var out []GanttSegment
	for _, seg := range s.GanttChart {
		if seg.ProcessID == processID {
			out = append(out, seg)
		}
	}
	return out
}
