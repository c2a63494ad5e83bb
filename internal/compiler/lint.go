package compiler

import (
	"fmt"

	"github.com/Frost/edeliver/internal/ir"
	"github.com/Frost/edeliver/internal/transform"
)

// Lint warning codes (W200-W299)
const (
	// WarnRepeatedRunnable: two steps insert runnables for the same module.
	// The second step re-applies the first/last-run guards to a sequence
	// whose run positions the first step already fixed; the resulting
	// load/unload placement is not specified.
	WarnRepeatedRunnable = "W201"

	// WarnPayloadCommitMarker: a step inserts a point_of_no_return of its
	// own, leaving the set with more than one commit marker.
	WarnPayloadCommitMarker = "W202"
)

// Lint reports suspicious but valid pipeline constructs.
// Warnings use the ValidationError shape with W2xx codes.
func Lint(spec *ir.PipelineSpec) []ValidationError {
	var warns []ValidationError

	firstStep := make(map[string]int)
	for i, st := range spec.Steps {
		field := fmt.Sprintf("steps[%d]", i)

		if mod := runnableModule(st); mod != "" {
			if prev, seen := firstStep[mod]; seen {
				warns = append(warns, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("runnable %s is already inserted by steps[%d]", mod, prev),
					Code:    WarnRepeatedRunnable,
				})
			} else {
				firstStep[mod] = i
			}
		}

		if hasCommitMarker(st.Up) || hasCommitMarker(st.Down) {
			warns = append(warns, ValidationError{
				Field:   field,
				Message: "step instructions contain point_of_no_return",
				Code:    WarnPayloadCommitMarker,
			})
		}
	}
	return warns
}

// runnableModule returns the module a step inserts a runnable for, or "".
func runnableModule(st ir.StepSpec) string {
	switch st.Use {
	case transform.UnitRunnable:
		return st.Options["module"]
	case transform.UnitSleep:
		return transform.SleepModule
	case transform.UnitCheckProcesses:
		return transform.CheckProcessesModule
	default:
		return ""
	}
}

func hasCommitMarker(s ir.Sequence) bool {
	for _, instr := range s {
		if _, ok := instr.(ir.PointOfNoReturn); ok {
			return true
		}
	}
	return false
}
