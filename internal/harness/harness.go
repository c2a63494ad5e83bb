package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/Frost/edeliver/internal/compiler"
	"github.com/Frost/edeliver/internal/engine"
	"github.com/Frost/edeliver/internal/ir"
)

// RunID returns the fixed engine run ID used for a scenario.
func RunID(scenario string) string {
	return "scenario-" + scenario
}

// Run executes a scenario with a background context.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext executes a scenario and returns the result.
//
// The returned error covers problems preparing the scenario, such as an
// unreadable pipeline file. A failing run or assertion is reported through
// Result.Errors instead.
//
// Execution flow:
//  1. Resolve the pipeline (inline steps or CUE file)
//  2. Run it through a journal-less engine with a fixed run ID
//  3. Check expect_error or expect
//  4. Evaluate assertions against the output
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	spec, err := scenario.pipelineSpec()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	eng := engine.New(nil, engine.WithRunIDs(engine.NewFixedGenerator(RunID(scenario.Name))))
	input := scenario.Input.Set()

	result := NewResult(scenario.Name)
	res, runErr := eng.Run(ctx, *spec, input)
	if runErr != nil {
		result.RunError = runErr.Error()
		switch {
		case scenario.ExpectError == "":
			result.AddError(fmt.Sprintf("run failed: %v", runErr))
		case !strings.Contains(runErr.Error(), scenario.ExpectError):
			result.AddError(fmt.Sprintf("expected error containing %q, got: %v", scenario.ExpectError, runErr))
		}
		return result, nil
	}

	result.RunID = res.Run.ID
	result.Output = res.Output()
	result.Steps = res.Steps

	if scenario.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected error containing %q, run succeeded", scenario.ExpectError))
	}
	if scenario.Expect != nil {
		checkExpect(result, scenario.Expect)
	}
	for _, msg := range EvaluateAssertions(input, result.Output, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// RunAll executes scenarios concurrently, at most limit at a time (no limit
// if limit <= 0), and returns their results in scenario order.
func RunAll(ctx context.Context, scenarios []*Scenario, limit int) ([]*Result, error) {
	results := make([]*Result, len(scenarios))

	eg, egCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i, sc := range scenarios {
		i, sc := i, sc
		eg.Go(func() error {
			res, err := RunContext(egCtx, sc)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func checkExpect(result *Result, expect *ExpectSpec) {
	if expect.Up != nil {
		if diff := SequenceDiff(ir.Sequence(*expect.Up), result.Output.Up); diff != "" {
			result.AddError(fmt.Sprintf("up sequence mismatch (-want +got):\n%s", diff))
		}
	}
	if expect.Down != nil {
		if diff := SequenceDiff(ir.Sequence(*expect.Down), result.Output.Down); diff != "" {
			result.AddError(fmt.Sprintf("down sequence mismatch (-want +got):\n%s", diff))
		}
	}
}

// SequenceDiff returns a line diff of two sequences in their text form, or
// "" if they are structurally equal.
func SequenceDiff(want, got ir.Sequence) string {
	if ir.EqualSequences(want, got) {
		return ""
	}
	return cmp.Diff(want.Format(), got.Format())
}

// pipelineSpec builds the pipeline of the scenario.
func (s *Scenario) pipelineSpec() (*ir.PipelineSpec, error) {
	if s.Pipeline != "" {
		path := s.Pipeline
		if !filepath.IsAbs(path) && s.dir != "" {
			path = filepath.Join(s.dir, path)
		}
		specs, err := compiler.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return compiler.Select(specs, s.PipelineName)
	}

	spec := &ir.PipelineSpec{
		Name:        s.Name,
		Release:     s.Release,
		FromVersion: s.FromVersion,
		ToVersion:   s.ToVersion,
		Steps:       make([]ir.StepSpec, len(s.Steps)),
	}
	for i, st := range s.Steps {
		opts, err := stringOptions(st.Options)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		spec.Steps[i] = ir.StepSpec{
			Use:     st.Use,
			Options: opts,
			Up:      ir.Sequence(st.Up),
			Down:    ir.Sequence(st.Down),
		}
	}
	return spec, nil
}
