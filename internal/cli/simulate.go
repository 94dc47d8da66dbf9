package cli

import (
	"fmt"
	"os"

	"github.com/me/dsviz/internal/scheduler"
	"github.com/me/dsviz/pkg/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// processFile is the on-disk form accepted by simulate. A bare list of
// processes is accepted too.
type processFile struct {
	Policy    string          `yaml:"policy"`
	Processes []model.Process `yaml:"processes"`
}

// loadProcessFile reads a YAML (or JSON) process file.
func loadProcessFile(path string) (*processFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read processes: %w", err)
	}

	var pf processFile
	if err := yaml.Unmarshal(data, &pf); err == nil && len(pf.Processes) > 0 {
		return &pf, nil
	}

	var list []model.Process
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse processes %s: %w", path, err)
	}
	return &processFile{Processes: list}, nil
}

// assignDefaultIDs labels processes without an id with the first "P<n>" not
// used anywhere in the file.
func assignDefaultIDs(procs []model.Process) []model.Process {
	taken := make(map[string]bool, len(procs))
	for _, p := range procs {
		if p.ID != "" {
			taken[p.ID] = true
		}
	}

	out := make([]model.Process, len(procs))
	n := 1
	for i, p := range procs {
		if p.ID == "" {
			for taken[fmt.Sprintf("P%d", n)] {
				n++
			}
			p.ID = fmt.Sprintf("P%d", n)
			taken[p.ID] = true
		}
		out[i] = p
	}
	return out
}

func newSimulateCmd() *cobra.Command {
	var (
		file        string
		policy      string
		minPriority int
		maxPriority int
		steps       bool
	)

	cmd := &cobra.Command{
		Use:   "simulate -f <processes.yaml>",
		Short: "Schedule a process file locally without a server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pf, err := loadProcessFile(file)
			if err != nil {
				return err
			}
			if policy == "" {
				policy = pf.Policy
			}
			pol, err := model.ParsePolicy(policy)
			if err != nil {
				return err
			}

			cfg := scheduler.Config{MinPriority: minPriority, MaxPriority: maxPriority, Policy: pol}
			if err := cfg.Validate(); err != nil {
				return err
			}
			engine := scheduler.NewEngine(cfg, logger)
			for i, p := range assignDefaultIDs(pf.Processes) {
				if err := engine.AddProcess(p); err != nil {
					return fmt.Errorf("process %d: %w", i+1, err)
				}
			}

			sched, err := engine.Compute()
			if err != nil {
				return err
			}
			logger.Debug("simulated", "file", file, "processes", engine.Len())
			renderSchedule(cmd.OutOrStdout(), sched, steps)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Process file (YAML or JSON)")
	cmd.Flags().StringVar(&policy, "policy", "", "Scheduling policy: preemptive or non-preemptive (default from file, else preemptive)")
	cmd.Flags().IntVar(&minPriority, "min-priority", 1, "Most urgent priority value")
	cmd.Flags().IntVar(&maxPriority, "max-priority", 3, "Least urgent priority value")
	cmd.Flags().BoolVar(&steps, "steps", true, "Print the execution trace")
	cmd.MarkFlagRequired("file")
	return cmd
}
