package store

import (
	"path/filepath"
	"testing"

	"github.com/Frost/edeliver/internal/ir"
)

// createTestStore opens a fresh journal in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSet() ir.Set {
	return ir.Set{
		Up: ir.Sequence{
			ir.LoadModule{Module: "A", PrePurge: ir.SoftPurge},
			ir.PointOfNoReturn{},
			ir.Run("Migrate", ir.Int(1), ir.Atom("fast")),
		},
		Down: ir.Sequence{ir.PointOfNoReturn{}, ir.DeleteModule{Module: "A"}},
	}
}

// createTestRun creates a running run with minimal required fields.
func createTestRun(id string, seq int64) ir.RunRecord {
	return ir.RunRecord{
		ID:               id,
		Seq:              seq,
		Pipeline:         "myapp-upgrade",
		PipelineHash:     "pipeline-hash",
		Release:          "myapp",
		FromVersion:      "1.0.0",
		ToVersion:        "1.1.0",
		Input:            testSet(),
		InputFingerprint: "in-fp",
		Status:           ir.RunRunning,
		EngineVersion:    ir.EngineVersion,
		IRVersion:        ir.IRVersion,
	}
}
