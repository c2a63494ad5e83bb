package harness

import (
	"fmt"
	"strings"

	"github.com/Frost/edeliver/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the inspected sequence to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Side     string      // "up" or "down"
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Sequence ir.Sequence // Inspected side for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s (%s)\n", e.Type, e.Side)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull sequence:\n")
	for _, line := range e.Sequence.Format() {
		fmt.Fprintf(&buf, "  %s\n", line)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against output and returns the
// messages of those that failed.
func EvaluateAssertions(input, output ir.Set, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(input, output, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(input, output ir.Set, a Assertion) error {
	s, in := side(output, a.Side), side(input, a.Side)
	switch a.Type {
	case AssertContains:
		return assertContains(s, a)
	case AssertAbsent:
		return assertAbsent(s, a)
	case AssertCount:
		return assertCount(s, a)
	case AssertOrder:
		return assertOrder(s, a)
	case AssertAdjacent:
		return assertAdjacent(s, a)
	case AssertUnchanged:
		return assertUnchanged(in, s, a)
	case AssertBeforeFirstMutation:
		return assertBeforeFirstMutation(s, a)
	case AssertLoadedBeforeRun:
		return assertLoadedBeforeRun(s, a)
	case AssertUnloadedAfterRun:
		return assertUnloadedAfterRun(s, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func side(s ir.Set, name string) ir.Sequence {
	if name == SideDown {
		return s.Down
	}
	return s.Up
}

func indexOf(s ir.Sequence, want ir.Instruction, from int) int {
	for i := from; i < len(s); i++ {
		if ir.Equal(s[i], want) {
			return i
		}
	}
	return -1
}

func assertContains(s ir.Sequence, a Assertion) error {
	if indexOf(s, a.Instruction.Instruction, 0) >= 0 {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Side:     a.Side,
		Expected: ir.FormatInstruction(a.Instruction.Instruction),
		Actual:   "not found",
		Sequence: s,
	}
}

func assertAbsent(s ir.Sequence, a Assertion) error {
	i := indexOf(s, a.Instruction.Instruction, 0)
	if i < 0 {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Side:     a.Side,
		Expected: fmt.Sprintf("no %s", ir.FormatInstruction(a.Instruction.Instruction)),
		Actual:   fmt.Sprintf("found at index %d", i),
		Sequence: s,
	}
}

func assertCount(s ir.Sequence, a Assertion) error {
	n := 0
	for _, instr := range s {
		if ir.Equal(instr, a.Instruction.Instruction) {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Side:     a.Side,
		Expected: fmt.Sprintf("%d x %s", a.Count, ir.FormatInstruction(a.Instruction.Instruction)),
		Actual:   fmt.Sprintf("%d occurrences", n),
		Sequence: s,
	}
}

// assertOrder checks that the instructions occur in the given relative
// order. Intervening instructions are allowed.
func assertOrder(s ir.Sequence, a Assertion) error {
	pos := 0
	for k, want := range a.Instructions {
		i := indexOf(s, want.Instruction, pos)
		if i < 0 {
			actual := "not found"
			if k > 0 && indexOf(s, want.Instruction, 0) >= 0 {
				actual = fmt.Sprintf("occurs before %s", ir.FormatInstruction(a.Instructions[k-1].Instruction))
			}
			return &AssertionError{
				Type:     a.Type,
				Side:     a.Side,
				Expected: fmt.Sprintf("%s in order", formatAll(a.Instructions)),
				Actual:   fmt.Sprintf("%s %s", ir.FormatInstruction(want.Instruction), actual),
				Sequence: s,
			}
		}
		pos = i + 1
	}
	return nil
}

// assertAdjacent checks that the instructions occur as a contiguous run.
func assertAdjacent(s ir.Sequence, a Assertion) error {
	for start := range s {
		if start+len(a.Instructions) > len(s) {
			break
		}
		match := true
		for k, want := range a.Instructions {
			if !ir.Equal(s[start+k], want.Instruction) {
				match = false
				break
			}
		}
		if match {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Side:     a.Side,
		Expected: fmt.Sprintf("%s adjacent", formatAll(a.Instructions)),
		Actual:   "no contiguous match",
		Sequence: s,
	}
}

func assertUnchanged(in, out ir.Sequence, a Assertion) error {
	if diff := SequenceDiff(in, out); diff != "" {
		return &AssertionError{
			Type:     a.Type,
			Side:     a.Side,
			Expected: "side equal to input",
			Actual:   fmt.Sprintf("differs (-input +output):\n%s", diff),
			Sequence: out,
		}
	}
	return nil
}

// assertBeforeFirstMutation checks that the instruction follows the commit
// marker and that nothing between the two mutates code, processes or
// applications, except self-loading pairs of a runnable instruction.
func assertBeforeFirstMutation(s ir.Sequence, a Assertion) error {
	fail := func(actual string) error {
		return &AssertionError{
			Type:     a.Type,
			Side:     a.Side,
			Expected: fmt.Sprintf("%s after point_of_no_return, before the first mutation", ir.FormatInstruction(a.Instruction.Instruction)),
			Actual:   actual,
			Sequence: s,
		}
	}

	marker := indexOf(s, ir.PointOfNoReturn{}, 0)
	if marker < 0 {
		return fail("no point_of_no_return")
	}
	target := indexOf(s, a.Instruction.Instruction, marker+1)
	if target < 0 {
		return fail("not found after point_of_no_return")
	}
	for i := marker + 1; i < target; i++ {
		if i+1 <= target && selfLoading(s[i], s[i+1]) {
			i++
			continue
		}
		if ir.Mutates(s[i]) {
			return fail(fmt.Sprintf("preceded by mutating %s at index %d", ir.FormatInstruction(s[i]), i))
		}
	}
	return nil
}

func selfLoading(load, run ir.Instruction) bool {
	a, ok := run.(ir.Apply)
	return ok && a.Function == ir.RunFunction && ir.LoadsModule(load, a.Module)
}

func assertLoadedBeforeRun(s ir.Sequence, a Assertion) error {
	first := -1
	for i, instr := range s {
		if ir.IsRun(instr, a.Unit) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil
	}
	for i := 0; i < first; i++ {
		if ir.LoadsModule(s[i], a.Unit) {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Side:     a.Side,
		Expected: fmt.Sprintf("load of %s before its first run at index %d", a.Unit, first),
		Actual:   "no load before it",
		Sequence: s,
	}
}

func assertUnloadedAfterRun(s ir.Sequence, a Assertion) error {
	last := -1
	for i, instr := range s {
		if ir.IsRun(instr, a.Unit) {
			last = i
		}
	}
	if last < 0 {
		return nil
	}
	for i := last + 1; i < len(s); i++ {
		if ir.UnloadsModule(s[i], a.Unit) {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Side:     a.Side,
		Expected: fmt.Sprintf("unload of %s after its last run at index %d", a.Unit, last),
		Actual:   "no unload after it",
		Sequence: s,
	}
}

func formatAll(instrs []Instruction) string {
	parts := make([]string, len(instrs))
	for i, in := range instrs {
		parts[i] = ir.FormatInstruction(in.Instruction)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
