package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Frost/edeliver/internal/ir"
	"github.com/Frost/edeliver/internal/transform"
)

// Validation error codes (E200-E299)
const (
	ErrPipelineNameEmpty = "E201" // pipeline name is required
	ErrPipelineNoSteps   = "E202" // at least one step required
	ErrUnknownUnit       = "E203" // step names an unregistered unit
	ErrInvalidStep       = "E204" // unit rejected the step configuration
	ErrSameVersion       = "E205" // from_version equals to_version
)

// ValidationError represents a pipeline validation error or lint warning.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled pipeline against reg.
// Returns all errors found (does not fail-fast). A nil reg uses
// transform.DefaultRegistry.
func Validate(spec *ir.PipelineSpec, reg *transform.Registry) []ValidationError {
	if reg == nil {
		reg = transform.DefaultRegistry()
	}
	var errs []ValidationError

	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "pipeline name is required and must be non-empty",
			Code:    ErrPipelineNameEmpty,
		})
	}

	if len(spec.Steps) == 0 {
		errs = append(errs, ValidationError{
			Field:   "steps",
			Message: "at least one step is required",
			Code:    ErrPipelineNoSteps,
		})
	}

	if spec.FromVersion != "" && spec.FromVersion == spec.ToVersion {
		errs = append(errs, ValidationError{
			Field:   "to_version",
			Message: fmt.Sprintf("to_version must differ from from_version %q", spec.FromVersion),
			Code:    ErrSameVersion,
		})
	}

	for i, st := range spec.Steps {
		field := fmt.Sprintf("steps[%d]", i)

		unit, err := reg.Lookup(st.Use)
		if err != nil {
			msg := err.Error()
			if errors.Is(err, transform.ErrUnknownUnit) {
				msg = fmt.Sprintf("unknown unit %q, known units: %s", st.Use, strings.Join(reg.Names(), ", "))
			}
			errs = append(errs, ValidationError{
				Field:   field + ".use",
				Message: msg,
				Code:    ErrUnknownUnit,
			})
			continue
		}

		cfg := transform.Config{
			Release:     spec.Release,
			FromVersion: spec.FromVersion,
			ToVersion:   spec.ToVersion,
			Options:     st.Options,
			Up:          st.Up,
			Down:        st.Down,
		}
		if err := transform.Validate(unit, cfg); err != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: err.Error(),
				Code:    ErrInvalidStep,
			})
		}
	}

	return errs
}
