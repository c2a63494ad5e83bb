package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Frost/edeliver/internal/ir"
	"github.com/Frost/edeliver/internal/queryir"
	"github.com/Frost/edeliver/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit    int    // most recent runs to list
	Pipeline string // only runs of this pipeline name
	Status   string // only runs with this status
	Run      string // show a single run with its steps
}

// RunSummary is one journaled run in history output.
type RunSummary struct {
	ID                string        `json:"id"`
	Seq               int64         `json:"seq"`
	Pipeline          string        `json:"pipeline"`
	Release           string        `json:"release,omitempty"`
	FromVersion       string        `json:"from_version,omitempty"`
	ToVersion         string        `json:"to_version,omitempty"`
	Status            ir.RunStatus  `json:"status"`
	Error             string        `json:"error,omitempty"`
	StartedAt         string        `json:"started_at"`
	InputFingerprint  string        `json:"input_fingerprint"`
	OutputFingerprint string        `json:"output_fingerprint,omitempty"`
	Steps             []StepSummary `json:"steps,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <journal.db>",
		Short: "List journaled pipeline runs",
		Long: `List the runs recorded in a journal by "apply --journal", oldest first.

With --run, show a single run and the steps it applied.

Examples:
  relupedit history relup.db
  relupedit history relup.db --pipeline upgrade --limit 5
  relupedit history relup.db --status failed
  relupedit history relup.db --run 01890a5d-ac96-774b-bcce-b302099a8057`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "number of most recent runs to list")
	cmd.Flags().StringVar(&opts.Pipeline, "pipeline", "", "only list runs of this pipeline")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only list runs with this status (running, succeeded, failed)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show one run with its steps")

	return cmd
}

func runHistory(opts *HistoryOptions, dbPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Status != "" && !validStatus(opts.Status) {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid status %q (use running, succeeded or failed)", opts.Status), nil)
	}

	// Opening creates a missing database, which would hide a typo.
	if _, err := os.Stat(dbPath); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("journal not found: %s", dbPath), nil)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
	}
	defer st.Close()

	if opts.Run != "" {
		run, err := st.ReadRun(ctx, opts.Run)
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("run %s not found", opts.Run), nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to read run", err)
		}
		steps, err := st.ReadSteps(ctx, run.ID)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to read steps", err)
		}
		summary := summarizeRun(run)
		summary.Steps = summarizeSteps(steps)
		return formatter.Result(formatRunDetail(summary), summary)
	}

	var filter []queryir.Predicate
	if opts.Pipeline != "" {
		filter = append(filter, queryir.Equals{Field: "pipeline", Value: opts.Pipeline})
	}
	if opts.Status != "" {
		filter = append(filter, queryir.Equals{Field: "status", Value: opts.Status})
	}
	runs, err := st.QueryRuns(ctx, queryir.Where(filter...), opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to read runs", err)
	}
	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, summarizeRun(run))
	}
	return formatter.Result(formatRuns(summaries), summaries)
}

func validStatus(s string) bool {
	switch ir.RunStatus(s) {
	case ir.RunRunning, ir.RunSucceeded, ir.RunFailed:
		return true
	default:
		return false
	}
}

func summarizeRun(run ir.RunRecord) RunSummary {
	return RunSummary{
		ID:                run.ID,
		Seq:               run.Seq,
		Pipeline:          run.Pipeline,
		Release:           run.Release,
		FromVersion:       run.FromVersion,
		ToVersion:         run.ToVersion,
		Status:            run.Status,
		Error:             run.Error,
		StartedAt:         run.StartedAt,
		InputFingerprint:  run.InputFingerprint,
		OutputFingerprint: run.OutputFingerprint,
	}
}

func formatRuns(runs []RunSummary) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}
	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&b, "%4d  %s  %-9s  %s", r.Seq, r.ID, r.Status, r.Pipeline)
		if r.FromVersion != "" || r.ToVersion != "" {
			fmt.Fprintf(&b, " (%s -> %s)", r.FromVersion, r.ToVersion)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatRunDetail(r RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run:      %s\n", r.ID)
	fmt.Fprintf(&b, "seq:      %d\n", r.Seq)
	fmt.Fprintf(&b, "pipeline: %s\n", r.Pipeline)
	if r.Release != "" {
		fmt.Fprintf(&b, "release:  %s %s -> %s\n", r.Release, r.FromVersion, r.ToVersion)
	}
	fmt.Fprintf(&b, "status:   %s\n", r.Status)
	if r.Error != "" {
		fmt.Fprintf(&b, "error:    %s\n", r.Error)
	}
	fmt.Fprintf(&b, "started:  %s\n", r.StartedAt)
	fmt.Fprintf(&b, "input:    %s\n", r.InputFingerprint)
	if r.OutputFingerprint != "" {
		fmt.Fprintf(&b, "output:   %s\n", r.OutputFingerprint)
	}
	for _, st := range r.Steps {
		changed := "unchanged"
		if st.Changed {
			changed = "changed"
		}
		fmt.Fprintf(&b, "  step %d  %-34s %-9s up=%d down=%d\n", st.Index, st.Unit, changed, st.UpLen, st.DownLen)
	}
	return b.String()
}
