package seq

import (
	"fmt"

	"github.com/Frost/edeliver/internal/ir"
)

type anchorKind int

const (
	anchorLiteral anchorKind = iota
	anchorFirstRun
	anchorLastRun
)

// Anchor identifies a location in a sequence: a literal instruction (the
// commit marker is one) or the first or last runnable instruction of a unit.
type Anchor struct {
	kind    anchorKind
	literal ir.Instruction
	key     string
	keyed   bool
	unit    string
}

// At anchors on the first instruction structurally equal to i.
func At(i ir.Instruction) Anchor {
	key, ok := ir.Key(i)
	return Anchor{kind: anchorLiteral, literal: i, key: key, keyed: ok}
}

// PointOfNoReturn anchors on the commit marker.
func PointOfNoReturn() Anchor {
	return At(ir.PointOfNoReturn{})
}

// FirstRun anchors on the first Apply{unit, "run", _}.
func FirstRun(unit string) Anchor {
	return Anchor{kind: anchorFirstRun, unit: unit}
}

// LastRun anchors on the last Apply{unit, "run", _}.
func LastRun(unit string) Anchor {
	return Anchor{kind: anchorLastRun, unit: unit}
}

// String describes the anchor for logs.
func (a Anchor) String() string {
	switch a.kind {
	case anchorFirstRun:
		return fmt.Sprintf("first %s.run", a.unit)
	case anchorLastRun:
		return fmt.Sprintf("last %s.run", a.unit)
	default:
		return ir.FormatInstruction(a.literal)
	}
}

func (a Anchor) matches(i ir.Instruction) bool {
	switch a.kind {
	case anchorFirstRun, anchorLastRun:
		return ir.IsRun(i, a.unit)
	default:
		if !a.keyed {
			return ir.Equal(a.literal, i)
		}
		key, ok := ir.Key(i)
		return ok && key == a.key
	}
}

// Locate returns the index of the anchor in s.
//
// Literal and first-occurrence anchors return the first match scanning head
// to tail. Last-occurrence anchors make a single forward pass remembering the
// most recent match. The second return value is false if nothing matched.
func Locate(s ir.Sequence, a Anchor) (int, bool) {
	found := -1
	for i, instr := range s {
		if !a.matches(instr) {
			continue
		}
		if a.kind != anchorLastRun {
			return i, true
		}
		found = i
	}
	return found, found >= 0
}
