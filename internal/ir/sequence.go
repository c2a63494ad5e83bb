package ir

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Sequence is an ordered list of instructions. Order is execution order.
type Sequence []Instruction

// Set pairs the upgrade sequence with its rollback sequence.
type Set struct {
	Up   Sequence `json:"up"`
	Down Sequence `json:"down"`
}

// NewSet builds a Set from the two sides.
func NewSet(up, down Sequence) Set {
	return Set{Up: up, Down: down}
}

// Key returns the canonical encoding of i as a string. Two instructions are
// structurally equal iff their keys are equal. The second return value is
// false if i cannot be encoded (nil or holding a nil term).
func Key(i Instruction) (string, bool) {
	n, err := instructionNode(i)
	if err != nil {
		return "", false
	}
	b, err := MarshalCanonical(n)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Equal reports whether a and b are structurally equal.
// Nil and empty slices compare equal. Pointer variants are outside the
// instruction set and never equal anything.
func Equal(a, b Instruction) bool {
	if isPointer(a) || isPointer(b) {
		return false
	}
	ka, okA := Key(a)
	kb, okB := Key(b)
	if okA && okB {
		return ka == kb
	}
	return reflect.DeepEqual(a, b)
}

func isPointer(i Instruction) bool {
	return i != nil && reflect.ValueOf(i).Kind() == reflect.Pointer
}

// EqualSequences reports whether a and b hold structurally equal
// instructions in the same order.
func EqualSequences(a, b Sequence) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the sequence as an array of instruction objects.
func (s Sequence) MarshalJSON() ([]byte, error) {
	nodes := make([]any, len(s))
	for i, instr := range s {
		n, err := instructionNode(instr)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		nodes[i] = n
	}
	return json.Marshal(nodes)
}

// UnmarshalJSON decodes an array of instruction objects.
func (s *Sequence) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Sequence, len(raw))
	for i, r := range raw {
		instr, err := UnmarshalInstruction(r)
		if err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
		out[i] = instr
	}
	*s = out
	return nil
}

// Format renders each instruction on its own line, prefixed by its index.
func (s Sequence) Format() []string {
	lines := make([]string, len(s))
	for i, instr := range s {
		lines[i] = fmt.Sprintf("%3d  %s", i, FormatInstruction(instr))
	}
	return lines
}
