package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/me/dsviz/pkg/model"
	"github.com/olekukonko/tablewriter"
)

// priorityColors mirrors the front end's priority-N segment classes.
var priorityColors = map[int]*color.Color{
	1: color.New(color.BgRed, color.FgWhite),
	2: color.New(color.BgYellow, color.FgBlack),
	3: color.New(color.BgGreen, color.FgBlack),
}

var defaultSegmentColor = color.New(color.BgCyan, color.FgBlack)

func segmentColor(priority int) *color.Color {
	if c, ok := priorityColors[priority]; ok {
		return c
	}
	return defaultSegmentColor
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

// renderProcesses writes the process table. Result columns show "-" until a
// schedule covers the process.
func renderProcesses(w io.Writer, procs []model.ProcessStatus) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Arrival", "Burst", "Priority", "Completion", "Turnaround", "Waiting"})
	for _, p := range procs {
		table.Append([]string{
			p.ID,
			strconv.Itoa(p.ArrivalTime),
			strconv.Itoa(p.BurstTime),
			strconv.Itoa(p.Priority),
			optInt(p.CompletionTime),
			optInt(p.TurnaroundTime),
			optInt(p.WaitingTime),
		})
	}
	table.Render()
}

// renderSchedule writes the metrics table, the Gantt chart and, when steps is
// set, the execution trace.
func renderSchedule(w io.Writer, s *model.Schedule, steps bool) {
	fmt.Fprintf(w, "Policy: %s\n", s.Policy)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Arrival", "Burst", "Priority", "Completion", "Turnaround", "Waiting"})
	for _, p := range s.Processes {
		table.Append([]string{
			p.ID,
			strconv.Itoa(p.ArrivalTime),
			strconv.Itoa(p.BurstTime),
			strconv.Itoa(p.Priority),
			optInt(p.CompletionTime),
			optInt(p.TurnaroundTime),
			optInt(p.WaitingTime),
		})
	}
	table.SetFooter([]string{"", "", "", "",
		fmt.Sprintf("Total %d", s.TotalTime),
		fmt.Sprintf("Avg %.2f", s.AvgTurnaroundTime),
		fmt.Sprintf("Avg %.2f", s.AvgWaitingTime),
	})
	table.Render()

	fmt.Fprintln(w)
	renderGantt(w, s.GanttChart)

	if steps {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Execution steps")
		for _, step := range s.ExecutionSteps {
			fmt.Fprintf(w, "  %s\n", step)
		}
	}
}

// renderGantt draws one coloured cell per segment with the boundary times
// underneath. Idle gaps are drawn as blank cells.
func renderGantt(w io.Writer, gantt []model.GanttSegment) {
	fmt.Fprintln(w, "Gantt chart")
	if len(gantt) == 0 {
		fmt.Fprintln(w, "  (empty)")
		return
	}

	var bar, times strings.Builder
	bar.WriteString("|")
	prevEnd := gantt[0].StartTime
	times.WriteString(padRight(strconv.Itoa(prevEnd), 1))

	for _, seg := range gantt {
		if seg.StartTime > prevEnd {
			width := cellWidth("", seg.StartTime-prevEnd)
			bar.WriteString(strings.Repeat(" ", width) + "|")
			times.WriteString(padRight("", width-len(strconv.Itoa(prevEnd))+1))
			times.WriteString(strconv.Itoa(seg.StartTime))
			prevEnd = seg.StartTime
		}
		width := cellWidth(seg.ProcessID, seg.Duration())
		label := center(seg.ProcessID, width)
		bar.WriteString(segmentColor(seg.Priority).Sprint(label) + "|")

		times.WriteString(padRight("", width-len(strconv.Itoa(prevEnd))+1))
		times.WriteString(strconv.Itoa(seg.EndTime))
		prevEnd = seg.EndTime
	}

	fmt.Fprintln(w, bar.String())
	fmt.Fprintln(w, times.String())
}

// cellWidth scales with the segment duration but always fits the label.
func cellWidth(label string, duration int) int {
	width := duration * 2
	if minWidth := len(label) + 2; width < minWidth {
		width = minWidth
	}
	return width
}

func center(s string, width int) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// renderRuns writes one summary row per run.
func renderRuns(w io.Writer, runs []*model.Run) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Run", "Created", "Policy", "Processes", "Total", "Avg TAT", "Avg WT"})
	for _, r := range runs {
		s := r.Schedule
		if s == nil {
			s = &model.Schedule{}
		}
		table.Append([]string{
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			string(s.Policy),
			strconv.Itoa(len(s.Processes)),
			strconv.Itoa(s.TotalTime),
			fmt.Sprintf("%.2f", s.AvgTurnaroundTime),
			fmt.Sprintf("%.2f", s.AvgWaitingTime),
		})
	}
	table.Render()
}
