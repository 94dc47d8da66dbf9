// Package scheduler simulates priority-based CPU scheduling over a set of
// processes and derives the Gantt chart, per-process metrics and a trace of
// scheduling decisions.
package scheduler

import (
	"fmt"
	"math"

	"github.com/me/dsviz/pkg/model"
)

// MaxTime bounds every time value a schedule can reach. Arrival and burst
// times are checked against it so completion times stay representable.
const MaxTime = math.MaxInt32

// Config holds engine configuration.
type Config struct {
	MinPriority int          // Most urgent priority value (default 1)
	MaxPriority int          // Least urgent priority value (default 3)
	Policy      model.Policy // Scheduling policy (default preemptive)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinPriority: 1,
		MaxPriority: 3,
		Policy:      model.PolicyPreemptive,
	}
}

// Validate checks that the priority range is well formed and the policy is known.
func (c Config) Validate() error {
	if c.MinPriority > c.MaxPriority {
		return &model.ValidationError{
			Field:   "max_priority",
			Message: fmt.Sprintf("must be >= min_priority (%d)", c.MinPriority),
		}
	}
	if _, err := model.ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	return nil
}
