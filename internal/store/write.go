package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Frost/edeliver/internal/ir"
)

// BeginRun inserts a run record. The input set is stored as canonical JSON;
// the output is left NULL until FinishRun.
// Uses ON CONFLICT(id) DO NOTHING: writing the same run twice is a no-op.
func (s *Store) BeginRun(ctx context.Context, run ir.RunRecord) error {
	input, err := marshalSet(run.Input)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, pipeline, pipeline_hash, release_name, from_version, to_version,
		 input, input_fingerprint, status, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Seq,
		run.Pipeline,
		run.PipelineHash,
		run.Release,
		run.FromVersion,
		run.ToVersion,
		input,
		run.InputFingerprint,
		string(statusOrRunning(run.Status)),
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// RecordStep inserts a step record. The run must exist (foreign key).
// Uses ON CONFLICT DO NOTHING on (run_id, idx).
func (s *Store) RecordStep(ctx context.Context, step ir.StepRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO steps
		(run_id, idx, unit, before_fingerprint, after_fingerprint, up_len, down_len)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, idx) DO NOTHING
	`,
		step.RunID,
		step.Index,
		step.Unit,
		step.Before,
		step.After,
		step.UpLen,
		step.DownLen,
	)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	return nil
}

// FinishRun stores the final status of a run. The output set is stored only
// for succeeded runs.
func (s *Store) FinishRun(ctx context.Context, run ir.RunRecord) error {
	var output sql.NullString
	if run.Status == ir.RunSucceeded {
		data, err := marshalSet(run.Output)
		if err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
		output = sql.NullString{String: data, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET output = ?, output_fingerprint = ?, status = ?, error = ?
		WHERE id = ?
	`,
		output,
		run.OutputFingerprint,
		string(run.Status),
		run.Error,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: run %q not found", run.ID)
	}
	return nil
}

func statusOrRunning(st ir.RunStatus) ir.RunStatus {
	if st == "" {
		return ir.RunRunning
	}
	return st
}
