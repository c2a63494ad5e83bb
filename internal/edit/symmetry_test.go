package edit

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Frost/edeliver/internal/ir"
	"github.com/Frost/edeliver/internal/seq"
)

var (
	marker = ir.PointOfNoReturn{}
	logX   = ir.Apply{Module: "Logger", Function: "info", Args: []ir.Term{ir.String("x")}}
	logY   = ir.Apply{Module: "Logger", Function: "info", Args: []ir.Term{ir.String("y")}}
)

func assertSet(t *testing.T, want, got ir.Set) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("set mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertAfterPointOfNoReturn_Scenario(t *testing.T) {
	s := ir.Set{
		Up: ir.Sequence{ir.LoadModule{Module: "A"}, marker, ir.Run("A"), ir.AddModule{Module: "B"}},
	}

	got := InsertAfterPointOfNoReturn(s, logX)

	assertSet(t, ir.Set{
		Up:   ir.Sequence{ir.LoadModule{Module: "A"}, marker, logX, ir.Run("A"), ir.AddModule{Module: "B"}},
		Down: ir.Sequence{logX},
	}, got)
}

func TestPointOfNoReturnInsertsMirror(t *testing.T) {
	sets := []ir.Set{
		{Up: ir.Sequence{marker}, Down: ir.Sequence{marker}},
		{
			Up:   ir.Sequence{ir.LoadModule{Module: "A"}, marker, ir.Update{Module: "S"}},
			Down: ir.Sequence{marker, ir.DeleteModule{Module: "A"}, ir.Update{Module: "S"}},
		},
		{
			Up:   ir.Sequence{ir.Run("A"), ir.AddModule{Module: "B"}, marker},
			Down: ir.Sequence{ir.Remove{Module: "B"}, marker, ir.Run("A")},
		},
	}

	for _, s := range sets {
		before := InsertBeforePointOfNoReturn(s, logX)
		assertAdjacent(t, before.Up, logX, marker)
		assertAdjacent(t, before.Down, marker, logX)

		after := InsertAfterPointOfNoReturn(s, logX)
		assertAdjacent(t, after.Up, marker, logX)
		assertAdjacent(t, after.Down, logX, marker)
	}
}

// assertAdjacent checks that first is immediately followed by second.
func assertAdjacent(t *testing.T, s ir.Sequence, first, second ir.Instruction) {
	t.Helper()
	i, ok := seq.Locate(s, seq.At(first))
	require.True(t, ok, "%v not found", first)
	require.Less(t, i+1, len(s))
	assert.True(t, ir.Equal(second, s[i+1]), "expected %s after %s, got %s",
		ir.FormatInstruction(second), ir.FormatInstruction(first), ir.FormatInstruction(s[i+1]))
}

func TestSplitPayloads(t *testing.T) {
	s := ir.Set{Up: ir.Sequence{marker}, Down: ir.Sequence{marker}}

	assertSet(t, ir.Set{
		Up:   ir.Sequence{marker, logX},
		Down: ir.Sequence{logY, marker},
	}, InsertAfterPointOfNoReturnSplit(s, ir.Sequence{logX}, ir.Sequence{logY}))

	assertSet(t, ir.Set{
		Up:   ir.Sequence{logX, marker},
		Down: ir.Sequence{marker, logY},
	}, InsertBeforePointOfNoReturnSplit(s, ir.Sequence{logX}, ir.Sequence{logY}))

	assertSet(t, ir.Set{
		Up:   ir.Sequence{marker, logX},
		Down: ir.Sequence{marker, logY},
	}, AppendSplit(s, ir.Sequence{logX}, ir.Sequence{logY}))
}

func TestInsertRelativeToInstruction(t *testing.T) {
	target := ir.Update{Module: "S"}
	s := ir.Set{
		Up:   ir.Sequence{marker, target},
		Down: ir.Sequence{marker, target},
	}

	assertSet(t, ir.Set{
		Up:   ir.Sequence{marker, logX, target},
		Down: ir.Sequence{marker, target, logX},
	}, InsertBeforeInstruction(s, target, logX))

	assertSet(t, ir.Set{
		Up:   ir.Sequence{marker, target, logX},
		Down: ir.Sequence{marker, logX, target},
	}, InsertAfterInstruction(s, target, logX))
}

func TestEnsureModuleLoadedBeforeInstruction_Mirrors(t *testing.T) {
	runA := ir.Run("A")
	s := ir.Set{
		Up:   ir.Sequence{marker, runA, ir.LoadModule{Module: "A"}},
		Down: ir.Sequence{ir.DeleteModule{Module: "A"}, marker, runA},
	}

	got := EnsureModuleLoadedBeforeInstruction(s, runA, "A")

	assertSet(t, ir.Set{
		Up:   ir.Sequence{marker, ir.LoadModule{Module: "A"}, runA},
		Down: ir.Sequence{marker, runA, ir.DeleteModule{Module: "A"}},
	}, got)
	assertSet(t, got, EnsureModuleLoadedBeforeInstruction(got, runA, "A"))

	// The dual applies the same edits with the sides swapped.
	swapped := EnsureModuleUnloadedAfterInstruction(ir.Set{Up: s.Down, Down: s.Up}, runA, "A")
	assertSet(t, ir.Set{Up: got.Down, Down: got.Up}, swapped)
}

func TestEnsureModuleLoadedBeforeFirstRun_Mirrors(t *testing.T) {
	run1 := ir.Run("A", ir.Int(1))
	run2 := ir.Run("A", ir.Int(2))
	s := ir.Set{
		Up:   ir.Sequence{marker, run1, ir.AddModule{Module: "B"}, run2, ir.AddModule{Module: "A"}},
		Down: ir.Sequence{ir.DeleteModule{Module: "A"}, run1, marker, run2},
	}

	got := EnsureModuleLoadedBeforeFirstRun(s, "A")

	assertSet(t, ir.Set{
		Up:   ir.Sequence{marker, ir.AddModule{Module: "A"}, run1, ir.AddModule{Module: "B"}, run2},
		Down: ir.Sequence{run1, marker, run2, ir.DeleteModule{Module: "A"}},
	}, got)

	swapped := EnsureModuleUnloadedAfterLastRun(ir.Set{Up: s.Down, Down: s.Up}, "A")
	assertSet(t, ir.Set{Up: got.Down, Down: got.Up}, swapped)
}

func TestAppendAfterPointOfNoReturn_BothSides(t *testing.T) {
	s := ir.Set{
		Up:   ir.Sequence{marker, ir.LoadModule{Module: "A"}, ir.Run("A"), ir.Update{Module: "B"}},
		Down: ir.Sequence{marker, ir.Update{Module: "B"}},
	}

	assertSet(t, ir.Set{
		Up:   ir.Sequence{marker, ir.LoadModule{Module: "A"}, ir.Run("A"), logX, ir.Update{Module: "B"}},
		Down: ir.Sequence{marker, logX, ir.Update{Module: "B"}},
	}, AppendAfterPointOfNoReturn(s, logX))
}

func TestAppend_BothSides(t *testing.T) {
	s := ir.Set{Up: ir.Sequence{marker}}
	assertSet(t, ir.Set{Up: ir.Sequence{marker, logX}, Down: ir.Sequence{logX}}, Append(s, logX))
}

func TestEdits_DoNotMutateInput(t *testing.T) {
	s := ir.Set{
		Up:   ir.Sequence{marker, ir.Run("A"), ir.LoadModule{Module: "A"}},
		Down: ir.Sequence{ir.DeleteModule{Module: "A"}, marker, ir.Run("A")},
	}
	fp, err := ir.Fingerprint(s)
	require.NoError(t, err)

	_ = InsertBeforePointOfNoReturn(s, logX)
	_ = InsertAfterPointOfNoReturn(s, logX)
	_ = EnsureModuleLoadedBeforeFirstRun(s, "A")
	_ = EnsureModuleUnloadedAfterLastRun(s, "A")
	_ = AppendAfterPointOfNoReturn(s, logX)

	after, err := ir.Fingerprint(s)
	require.NoError(t, err)
	assert.Equal(t, fp, after)
}
