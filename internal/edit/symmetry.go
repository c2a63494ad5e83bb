package edit

import (
	"github.com/Frost/edeliver/internal/ir"
	"github.com/Frost/edeliver/internal/seq"
)

// sided is a pair of bare edits, one per side of a set.
type sided struct {
	up   func(ir.Sequence) ir.Sequence
	down func(ir.Sequence) ir.Sequence
}

func (e sided) apply(s ir.Set) ir.Set {
	return ir.Set{Up: e.up(s.Up), Down: e.down(s.Down)}
}

func insertBefore(a seq.Anchor, news ir.Sequence) func(ir.Sequence) ir.Sequence {
	return func(s ir.Sequence) ir.Sequence { return seq.InsertBefore(s, a, news...) }
}

func insertAfter(a seq.Anchor, news ir.Sequence) func(ir.Sequence) ir.Sequence {
	return func(s ir.Sequence) ir.Sequence { return seq.InsertAfter(s, a, news...) }
}

// InsertBeforePointOfNoReturn inserts news immediately before the commit
// marker on up and immediately after it on down.
func InsertBeforePointOfNoReturn(s ir.Set, news ...ir.Instruction) ir.Set {
	return InsertBeforePointOfNoReturnSplit(s, news, news)
}

// InsertBeforePointOfNoReturnSplit is InsertBeforePointOfNoReturn with a
// distinct payload per side.
func InsertBeforePointOfNoReturnSplit(s ir.Set, up, down ir.Sequence) ir.Set {
	a := seq.PointOfNoReturn()
	return sided{up: insertBefore(a, up), down: insertAfter(a, down)}.apply(s)
}

// InsertAfterPointOfNoReturn inserts news immediately after the commit
// marker on up and immediately before it on down.
func InsertAfterPointOfNoReturn(s ir.Set, news ...ir.Instruction) ir.Set {
	return InsertAfterPointOfNoReturnSplit(s, news, news)
}

// InsertAfterPointOfNoReturnSplit is InsertAfterPointOfNoReturn with a
// distinct payload per side.
func InsertAfterPointOfNoReturnSplit(s ir.Set, up, down ir.Sequence) ir.Set {
	a := seq.PointOfNoReturn()
	return sided{up: insertAfter(a, up), down: insertBefore(a, down)}.apply(s)
}

// InsertBeforeInstruction inserts news before target on up and after target
// on down. A missing target appends on that side.
func InsertBeforeInstruction(s ir.Set, target ir.Instruction, news ...ir.Instruction) ir.Set {
	a := seq.At(target)
	return sided{up: insertBefore(a, news), down: insertAfter(a, news)}.apply(s)
}

// InsertAfterInstruction inserts news after target on up and before target
// on down.
func InsertAfterInstruction(s ir.Set, target ir.Instruction, news ...ir.Instruction) ir.Set {
	a := seq.At(target)
	return sided{up: insertAfter(a, news), down: insertBefore(a, news)}.apply(s)
}

// EnsureModuleLoadedBeforeInstruction keeps a load of unit before target on
// up and an unload of unit after target on down.
func EnsureModuleLoadedBeforeInstruction(s ir.Set, target ir.Instruction, unit string) ir.Set {
	return sided{
		up:   func(q ir.Sequence) ir.Sequence { return seq.EnsureLoadedBefore(q, target, unit) },
		down: func(q ir.Sequence) ir.Sequence { return seq.EnsureUnloadedAfter(q, target, unit) },
	}.apply(s)
}

// EnsureModuleUnloadedAfterInstruction keeps an unload of unit after target
// on up and a load of unit before target on down.
func EnsureModuleUnloadedAfterInstruction(s ir.Set, target ir.Instruction, unit string) ir.Set {
	return sided{
		up:   func(q ir.Sequence) ir.Sequence { return seq.EnsureUnloadedAfter(q, target, unit) },
		down: func(q ir.Sequence) ir.Sequence { return seq.EnsureLoadedBefore(q, target, unit) },
	}.apply(s)
}

// EnsureModuleLoadedBeforeFirstRun keeps a load of unit before its first
// runnable instruction on up and an unload after its last one on down.
func EnsureModuleLoadedBeforeFirstRun(s ir.Set, unit string) ir.Set {
	return sided{
		up:   func(q ir.Sequence) ir.Sequence { return seq.EnsureLoadedBeforeFirstRun(q, unit) },
		down: func(q ir.Sequence) ir.Sequence { return seq.EnsureUnloadedAfterLastRun(q, unit) },
	}.apply(s)
}

// EnsureModuleUnloadedAfterLastRun keeps an unload of unit after its last
// runnable instruction on up and a load before its first one on down.
func EnsureModuleUnloadedAfterLastRun(s ir.Set, unit string) ir.Set {
	return sided{
		up:   func(q ir.Sequence) ir.Sequence { return seq.EnsureUnloadedAfterLastRun(q, unit) },
		down: func(q ir.Sequence) ir.Sequence { return seq.EnsureLoadedBeforeFirstRun(q, unit) },
	}.apply(s)
}

// Append appends news at the tail of both sides.
func Append(s ir.Set, news ...ir.Instruction) ir.Set {
	return AppendSplit(s, news, news)
}

// AppendSplit appends a distinct payload to each side.
func AppendSplit(s ir.Set, up, down ir.Sequence) ir.Set {
	return ir.Set{Up: seq.Append(s.Up, up...), Down: seq.Append(s.Down, down...)}
}

// AppendAfterPointOfNoReturn runs the boundary scan on both sides
// independently, inserting news after the marker and before the first
// mutating instruction of each side.
func AppendAfterPointOfNoReturn(s ir.Set, news ...ir.Instruction) ir.Set {
	return AppendAfterPointOfNoReturnSplit(s, news, news)
}

// AppendAfterPointOfNoReturnSplit is AppendAfterPointOfNoReturn with a
// distinct payload per side.
func AppendAfterPointOfNoReturnSplit(s ir.Set, up, down ir.Sequence) ir.Set {
	return ir.Set{
		Up:   seq.AppendAfterPointOfNoReturn(s.Up, up...),
		Down: seq.AppendAfterPointOfNoReturn(s.Down, down...),
	}
}
