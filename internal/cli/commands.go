package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/me/dsviz/pkg/model"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

func newAddCmd() *cobra.Command {
	var (
		id       string
		arrival  int
		burst    int
		priority int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a process to the session",
		Long:  "Add a process to the session. Without --id the server assigns the next free P<n> label.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Post("/api/v1/scheduler/processes/", map[string]any{
				"id":           id,
				"arrival_time": arrival,
				"burst_time":   burst,
				"priority":     priority,
			})
			if err != nil {
				return fmt.Errorf("add process: %w", err)
			}
			data := gjson.ParseBytes(resp.Data)
			fmt.Fprintf(cmd.OutOrStdout(), "Process %s added (arrival %d, burst %d, priority %d)\n",
				data.Get("id").String(), data.Get("arrival_time").Int(),
				data.Get("burst_time").Int(), data.Get("priority").Int())
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Process id (default P<n>)")
	cmd.Flags().IntVarP(&arrival, "arrival", "a", 0, "Arrival time")
	cmd.Flags().IntVarP(&burst, "burst", "b", 1, "Burst time")
	cmd.Flags().IntVarP(&priority, "priority", "p", 1, "Priority (1 = most urgent)")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the session's processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/scheduler/processes/")
			if err != nil {
				return fmt.Errorf("list processes: %w", err)
			}

			var procs []model.ProcessStatus
			if err := json.Unmarshal(resp.Data, &procs); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			if len(procs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No processes.")
				return nil
			}
			renderProcesses(cmd.OutOrStdout(), procs)
			return nil
		},
	}
}

func newScheduleCmd() *cobra.Command {
	var (
		steps   bool
		rawJSON bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute the schedule for the session's processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Post("/api/v1/scheduler/schedule", nil)
			if err != nil {
				return fmt.Errorf("compute schedule: %w", err)
			}
			if rawJSON {
				fmt.Fprintln(cmd.OutOrStdout(), string(resp.Data))
				return nil
			}

			var sched model.Schedule
			if err := json.Unmarshal(resp.Data, &sched); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			renderSchedule(cmd.OutOrStdout(), &sched, steps)
			return nil
		},
	}

	cmd.Flags().BoolVar(&steps, "steps", true, "Print the execution trace")
	cmd.Flags().BoolVar(&rawJSON, "json", false, "Print the raw schedule JSON")
	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the session's processes and schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := client.Delete("/api/v1/scheduler/processes/"); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s reset\n", client.Session)
			return nil
		},
	}
}

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show previously computed schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/scheduler/runs?limit=" + strconv.Itoa(limit))
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if n := gjson.GetBytes(resp.Data, "#").Int(); n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs.")
				return nil
			}

			var runs []*model.Run
			if err := json.Unmarshal(resp.Data, &runs); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			renderRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of runs")
	return cmd
}
