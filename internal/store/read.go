package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Frost/edeliver/internal/ir"
	"github.com/Frost/edeliver/internal/queryir"
	"github.com/Frost/edeliver/internal/querysql"
)

// runColumns is the column order scanRun expects.
var runColumns = []string{
	"id", "seq", "pipeline", "pipeline_hash", "release_name", "from_version", "to_version",
	"input", "input_fingerprint", "output", "output_fingerprint", "status", "error", "started_at",
	"engine_version", "ir_version",
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+strings.Join(runColumns, ", ")+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("read run %q: %w", id, err)
	}
	return run, nil
}

// ReadRuns returns the most recent runs, newest last. A limit of zero or less
// returns every run.
//
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ReadRuns(ctx context.Context, limit int) ([]ir.RunRecord, error) {
	return s.QueryRuns(ctx, nil, limit)
}

// ReadRunsForPipeline returns every run of the pipeline with the given
// content hash, oldest first.
func (s *Store) ReadRunsForPipeline(ctx context.Context, pipelineHash string) ([]ir.RunRecord, error) {
	return s.QueryRuns(ctx, queryir.Equals{Field: "pipeline_hash", Value: pipelineHash}, 0)
}

// QueryRuns returns the runs matching filter in journal order. A nil filter
// matches every run. A positive limit keeps only the newest matches.
func (s *Store) QueryRuns(ctx context.Context, filter queryir.Predicate, limit int) ([]ir.RunRecord, error) {
	if limit < 0 {
		limit = 0
	}
	query, args, err := querysql.Compile(queryir.Select{
		From:    queryir.TableRuns,
		Columns: runColumns,
		Filter:  filter,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	return s.queryRuns(ctx, query, args...)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]ir.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadSteps returns the steps of a run in execution order.
// Returns an empty slice (not nil) if the run has no steps.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]ir.StepRecord, error) {
	query, args, err := querysql.Compile(queryir.Select{
		From:    queryir.TableSteps,
		Columns: []string{"run_id", "idx", "unit", "before_fingerprint", "after_fingerprint", "up_len", "down_len"},
		Filter:  queryir.Equals{Field: "run_id", Value: runID},
	})
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []ir.StepRecord{}
	for rows.Next() {
		var st ir.StepRecord
		if err := rows.Scan(&st.RunID, &st.Index, &st.Unit, &st.Before, &st.After, &st.UpLen, &st.DownLen); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

func scanRun(row rowScanner) (ir.RunRecord, error) {
	var (
		run    ir.RunRecord
		input  string
		output sql.NullString
		status string
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.Pipeline,
		&run.PipelineHash,
		&run.Release,
		&run.FromVersion,
		&run.ToVersion,
		&input,
		&run.InputFingerprint,
		&output,
		&run.OutputFingerprint,
		&status,
		&run.Error,
		&run.StartedAt,
		&run.EngineVersion,
		&run.IRVersion,
	)
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = ir.RunStatus(status)

	if run.Input, err = unmarshalSet(input); err != nil {
		return ir.RunRecord{}, fmt.Errorf("run %q input: %w", run.ID, err)
	}
	if run.Output, err = unmarshalNullSet(output); err != nil {
		return ir.RunRecord{}, fmt.Errorf("run %q output: %w", run.ID, err)
	}
	return run, nil
}
