package harness

import (
	"github.com/Frost/edeliver/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Scenario is the name of the scenario that produced this result.
	Scenario string `json:"scenario"`

	// Pass indicates overall success: the run matched expect, or failed
	// as expect_error demanded, and every assertion held.
	Pass bool `json:"pass"`

	// RunID is the engine run ID of the scenario run.
	RunID string `json:"run_id,omitempty"`

	// Output is the transformed set. Empty if the run failed.
	Output ir.Set `json:"output"`

	// Steps records every applied step in order.
	Steps []ir.StepRecord `json:"steps"`

	// RunError is the engine error of a failed run.
	RunError string `json:"run_error,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Steps:    []ir.StepRecord{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
