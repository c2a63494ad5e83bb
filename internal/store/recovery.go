package store

import (
	"context"
	"fmt"

	"github.com/Frost/edeliver/internal/ir"
	"github.com/Frost/edeliver/internal/queryir"
)

// LastSeq returns the highest run seq in the journal, or 0 for an empty
// journal. The engine clock is resumed from it with engine.NewClockAt.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// FindIncompleteRuns returns runs still marked running. Outside of an active
// process these were interrupted before FinishRun.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]ir.RunRecord, error) {
	return s.QueryRuns(ctx, queryir.Equals{Field: "status", Value: string(ir.RunRunning)}, 0)
}

// AbandonIncompleteRuns marks every running run as failed with reason and
// returns how many were updated.
func (s *Store) AbandonIncompleteRuns(ctx context.Context, reason string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ? WHERE status = ?
	`, string(ir.RunFailed), reason, string(ir.RunRunning))
	if err != nil {
		return 0, fmt.Errorf("abandon runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("abandon runs: rows affected: %w", err)
	}
	return int(n), nil
}
