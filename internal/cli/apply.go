package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Frost/edeliver/internal/engine"
	"github.com/Frost/edeliver/internal/ir"
	"github.com/Frost/edeliver/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Output   string // write the resulting set here instead of printing it
	Journal  string // SQLite journal path
	Pipeline string // pipeline name when the file defines several
}

// ApplyResult is the JSON payload of a successful apply.
type ApplyResult struct {
	RunID             string        `json:"run_id"`
	Pipeline          string        `json:"pipeline"`
	PipelineHash      string        `json:"pipeline_hash"`
	InputFingerprint  string        `json:"input_fingerprint"`
	OutputFingerprint string        `json:"output_fingerprint"`
	Steps             []StepSummary `json:"steps"`
	Output            *ir.Set       `json:"output,omitempty"`
}

// StepSummary describes one applied step.
type StepSummary struct {
	Index   int    `json:"index"`
	Unit    string `json:"unit"`
	Changed bool   `json:"changed"`
	UpLen   int    `json:"up_len"`
	DownLen int    `json:"down_len"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <pipeline> <set.json>",
		Short: "Run a pipeline on an instruction set",
		Long: `Compile a CUE pipeline and apply it to an instruction set.

The set is a JSON object {"up": [...], "down": [...]}; use "-" to read it
from stdin. The resulting set is printed, or written to --output.

Exit codes:
  0 - Pipeline applied
  1 - Pipeline run failed (unknown unit, invalid step)
  2 - Command error (missing files, unreadable set, journal error)

Examples:
  relupedit apply upgrade.cue relup.json
  relupedit apply pipelines/ relup.json --pipeline upgrade -o relup.out.json
  relupedit apply upgrade.cue relup.json --journal relup.db`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the resulting set to this file")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the run in this SQLite journal")
	cmd.Flags().StringVar(&opts.Pipeline, "pipeline", "", "pipeline to run when several are defined")

	return cmd
}

func runApply(opts *ApplyOptions, pipelinePath, setPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	spec, err := LoadPipeline(pipelinePath, opts.Pipeline)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), "failed to load pipeline", err)
	}
	formatter.VerboseLog("Loaded pipeline %s (%d steps)", spec.Name, len(spec.Steps))

	input, err := readSet(setPath, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadSet, "failed to read instruction set", err)
	}

	var engOpts []engine.Option
	if opts.Journal != "" {
		st, err := store.Open(opts.Journal)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
		}
		defer st.Close()

		n, err := st.AbandonIncompleteRuns(ctx, "interrupted before finishing")
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to recover journal", err)
		}
		if n > 0 {
			formatter.VerboseLog("Marked %d interrupted run(s) as failed", n)
		}
		seq, err := st.LastSeq(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to read journal", err)
		}
		engOpts = append(engOpts, engine.WithJournal(st), engine.WithClock(engine.NewClockAt(seq)))
	}

	eng := engine.New(nil, engOpts...)
	res, err := eng.Run(ctx, *spec, input)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeRunFailed, "pipeline run failed", err)
	}
	out := res.Output()

	result := ApplyResult{
		RunID:             res.Run.ID,
		Pipeline:          res.Run.Pipeline,
		PipelineHash:      res.Run.PipelineHash,
		InputFingerprint:  res.Run.InputFingerprint,
		OutputFingerprint: res.Run.OutputFingerprint,
		Steps:             summarizeSteps(res.Steps),
	}

	if opts.Output != "" {
		if err := writeSet(opts.Output, out); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write output", err)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
		return formatter.Result(fmt.Sprintf("✓ %s applied, run %s, output written to %s\n", spec.Name, res.Run.ID, opts.Output), result)
	}

	result.Output = &out
	return formatter.Result(formatSet(out), result)
}

func summarizeSteps(steps []ir.StepRecord) []StepSummary {
	out := make([]StepSummary, len(steps))
	for i, st := range steps {
		out[i] = StepSummary{Index: st.Index, Unit: st.Unit, Changed: st.Changed(), UpLen: st.UpLen, DownLen: st.DownLen}
	}
	return out
}

// readSet decodes an instruction set from path, or from stdin for "-".
func readSet(path string, stdin io.Reader) (ir.Set, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return ir.Set{}, err
	}

	var s ir.Set
	if err := json.Unmarshal(data, &s); err != nil {
		return ir.Set{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func writeSet(path string, s ir.Set) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// formatSet renders both sides of a set, one instruction per line.
func formatSet(s ir.Set) string {
	var b strings.Builder
	b.WriteString("up:\n")
	for _, line := range s.Up.Format() {
		b.WriteString(line + "\n")
	}
	b.WriteString("down:\n")
	for _, line := range s.Down.Format() {
		b.WriteString(line + "\n")
	}
	return b.String()
}
