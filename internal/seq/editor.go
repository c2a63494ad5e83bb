package seq

import (
	"slices"

	"github.com/Frost/edeliver/internal/ir"
)

// InsertBefore splices news immediately before the anchor, preserving their
// order. If the anchor is not found, news are appended at the tail.
func InsertBefore(s ir.Sequence, a Anchor, news ...ir.Instruction) ir.Sequence {
	i, ok := Locate(s, a)
	if !ok {
		return Append(s, news...)
	}
	return splice(s, i, news)
}

// InsertAfter splices news immediately after the anchor, preserving their
// order. If the anchor is not found, news are appended at the tail.
func InsertAfter(s ir.Sequence, a Anchor, news ...ir.Instruction) ir.Sequence {
	i, ok := Locate(s, a)
	if !ok {
		return Append(s, news...)
	}
	return splice(s, i+1, news)
}

// Append concatenates news at the tail.
func Append(s ir.Sequence, news ...ir.Instruction) ir.Sequence {
	out := slices.Grow[ir.Sequence](nil, len(s)+len(news))
	out = append(out, s...)
	return append(out, news...)
}

// Remove returns s without the element at index i. Out-of-range indexes
// return a copy of s.
func Remove(s ir.Sequence, i int) ir.Sequence {
	if i < 0 || i >= len(s) {
		return slices.Clone(s)
	}
	out := slices.Grow[ir.Sequence](nil, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

// splice returns a new sequence with news inserted at index i.
func splice(s ir.Sequence, i int, news []ir.Instruction) ir.Sequence {
	out := make(ir.Sequence, 0, len(s)+len(news))
	out = append(out, s[:i]...)
	out = append(out, news...)
	return append(out, s[i:]...)
}
