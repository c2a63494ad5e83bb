package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Frost/edeliver/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update   bool   // regenerate golden files
	Filter   string // scenario name filter (glob pattern)
	Parallel int    // scenarios run concurrently (0 = unlimited)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "" when no golden file exists
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run editing scenarios",
		Long: `Run the YAML scenarios of a directory through the engine.

A scenario passes when its expectations and assertions hold and, if
<scenarios-dir>/golden/<name>.golden exists, its snapshot matches.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenarios)

Examples:
  relupedit test ./scenarios
  relupedit test ./scenarios --filter "runnable_*"
  relupedit test ./scenarios --update`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name glob")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 4, "scenarios run concurrently (0 = unlimited)")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", dir), nil)
	}

	scenarios, err := harness.LoadScenarios(dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load scenarios", err)
	}
	scenarios, err = filterScenarios(scenarios, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid filter pattern", err)
	}

	results, err := harness.RunAll(cmd.Context(), scenarios, opts.Parallel)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to run scenarios", err)
	}

	summary := TestResult{Scenarios: make([]ScenarioResult, 0, len(results)), Total: len(results)}
	for _, res := range results {
		sr := ScenarioResult{Name: res.Scenario, Pass: res.Pass, Errors: res.Errors}
		checkGolden(&sr, res, filepath.Join(dir, "golden"), opts.Update)
		if sr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Scenarios = append(summary.Scenarios, sr)
	}

	if err := formatter.Result(formatTests(summary), summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}

func filterScenarios(scenarios []*harness.Scenario, pattern string) ([]*harness.Scenario, error) {
	if pattern == "" {
		return scenarios, nil
	}
	var out []*harness.Scenario
	for _, sc := range scenarios {
		ok, err := filepath.Match(pattern, sc.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, sc)
		}
	}
	return out, nil
}

// checkGolden compares the snapshot of res with its golden file, or
// rewrites the file when update is set.
func checkGolden(sr *ScenarioResult, res *harness.Result, goldenDir string, update bool) {
	fail := func(msg string) {
		sr.Pass = false
		sr.Errors = append(sr.Errors, msg)
	}

	data, err := harness.MarshalSnapshot(res)
	if err != nil {
		fail(fmt.Sprintf("snapshot: %v", err))
		return
	}
	path := filepath.Join(goldenDir, res.Scenario+".golden")

	if update {
		if err := os.MkdirAll(goldenDir, 0o755); err != nil {
			fail(fmt.Sprintf("failed to create golden directory: %v", err))
			return
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fail(fmt.Sprintf("failed to write golden file: %v", err))
			return
		}
		sr.Golden = "updated"
		return
	}

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		fail(fmt.Sprintf("failed to read golden file: %v", err))
		return
	}
	if !bytes.Equal(want, data) {
		fail("snapshot does not match golden file (run with --update to regenerate)")
		return
	}
	sr.Golden = "match"
}

func formatTests(r TestResult) string {
	var b strings.Builder
	if r.Total == 0 {
		return "No scenarios found.\n"
	}
	for _, sr := range r.Scenarios {
		if sr.Pass {
			suffix := ""
			if sr.Golden == "updated" {
				suffix = " (golden updated)"
			}
			fmt.Fprintf(&b, "✓ %s%s\n", sr.Name, suffix)
			continue
		}
		fmt.Fprintf(&b, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
	}
	fmt.Fprintf(&b, "\nTest Summary: %d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	if r.Failed == 0 {
		fmt.Fprintln(&b, "✓ All scenarios passed")
	}
	return b.String()
}
