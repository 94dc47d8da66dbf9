package model

// Policy selects how the scheduler reacts to arrivals while a process runs.
type Policy string

const (
	// PolicyPreemptive re-evaluates priorities on every arrival and may
	// interrupt the running process.
	PolicyPreemptive Policy = "preemptive"
	// PolicyNonPreemptive runs a selected process to completion.
	PolicyNonPreemptive Policy = "non-preemptive"
)

// String returns the string representation of the policy.
func (p Policy) String() string {
	return string(p)
}

// Preemptive reports whether arrivals can interrupt the running process.
func (p Policy) Preemptive() bool {
	return p != PolicyNonPreemptive
}

// ParsePolicy converts a policy name to a Policy. The empty string maps to
// PolicyPreemptive.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyPreemptive:
		return PolicyPreemptive, nil
	case PolicyNonPreemptive:
		return PolicyNonPreemptive, nil
	}
	return "", &ValidationError{Field: "policy", Message: "unknown policy " + `"` + s + `"`}
}
