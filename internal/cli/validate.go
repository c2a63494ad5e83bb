package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Frost/edeliver/internal/compiler"
	"github.com/Frost/edeliver/internal/transform"
)

// PipelineValidation holds the findings for one pipeline.
type PipelineValidation struct {
	Pipeline string                     `json:"pipeline"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                 `json:"valid"`
	Pipelines []PipelineValidation `json:"pipelines"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <pipeline>",
		Short: "Check pipelines without running them",
		Long: `Compile every pipeline defined at the given CUE file or directory and check
it against the registered transformation units.

Errors (unknown units, invalid step options, missing steps) fail validation.
Warnings (a runnable used twice, a payload carrying its own commit marker)
are reported but do not.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	specs, err := LoadPipelines(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), "failed to load pipelines", err)
	}

	reg := transform.DefaultRegistry()
	result := ValidationResult{Valid: true, Pipelines: make([]PipelineValidation, 0, len(specs))}
	failed := 0
	for _, spec := range specs {
		formatter.VerboseLog("Validating pipeline: %s", spec.Name)
		pv := PipelineValidation{
			Pipeline: spec.Name,
			Errors:   compiler.Validate(spec, reg),
			Warnings: compiler.Lint(spec),
		}
		if len(pv.Errors) > 0 {
			result.Valid = false
			failed++
		}
		result.Pipelines = append(result.Pipelines, pv)
	}

	if err := formatter.Result(formatValidation(result), result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d pipeline(s)", failed))
	}
	return nil
}

func formatValidation(r ValidationResult) string {
	var b strings.Builder
	for _, pv := range r.Pipelines {
		mark := "✓"
		if len(pv.Errors) > 0 {
			mark = "✗"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, pv.Pipeline)
		for _, e := range pv.Errors {
			fmt.Fprintf(&b, "  %s\n", e.Error())
		}
		for _, w := range pv.Warnings {
			fmt.Fprintf(&b, "  warning %s\n", w.Error())
		}
	}
	if r.Valid {
		fmt.Fprintln(&b, "All pipelines valid")
	}
	return b.String()
}
