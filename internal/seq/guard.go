package seq

import "github.com/Frost/edeliver/internal/ir"

// EnsureLoadedBefore makes sure a load of unit precedes target, which is
// expected to occur at most once in s.
//
//   - a load of unit already before target: s is returned unchanged
//   - the first load of unit is after target: it is moved to immediately
//     before target
//   - no load of unit, or no target: s is returned unchanged
//
// A load is never fabricated. Applying the guard again is a no-op.
func EnsureLoadedBefore(s ir.Sequence, target ir.Instruction, unit string) ir.Sequence {
	return ensureLoadedBefore(s, At(target), unit)
}

// EnsureUnloadedAfter makes sure an unload (DeleteModule or Remove) of unit
// follows target, which is expected to occur at most once in s. If no unload
// follows target, the first one found before it is moved to immediately
// after target.
func EnsureUnloadedAfter(s ir.Sequence, target ir.Instruction, unit string) ir.Sequence {
	return ensureUnloadedAfter(s, At(target), unit)
}

// EnsureLoadedBeforeFirstRun is EnsureLoadedBefore with the target being the
// first Apply{unit, "run", _}, for units whose runnable instruction occurs
// more than once.
//
// Calling the run guards more than once for the same unit in one sequence
// with differing targets is not supported and gives an unspecified result.
func EnsureLoadedBeforeFirstRun(s ir.Sequence, unit string) ir.Sequence {
	return ensureLoadedBefore(s, FirstRun(unit), unit)
}

// EnsureUnloadedAfterLastRun is EnsureUnloadedAfter with the target being
// the last Apply{unit, "run", _}. The last occurrence is found with a full
// pass, since earlier edits may have interleaved other instructions.
func EnsureUnloadedAfterLastRun(s ir.Sequence, unit string) ir.Sequence {
	return ensureUnloadedAfter(s, LastRun(unit), unit)
}

func ensureLoadedBefore(s ir.Sequence, target Anchor, unit string) ir.Sequence {
	t, ok := Locate(s, target)
	if !ok {
		return s
	}

	for i, instr := range s {
		if !ir.LoadsModule(instr, unit) {
			continue
		}
		if i < t {
			return s
		}
		// i > t: relocate. Removing i leaves index t untouched.
		return splice(Remove(s, i), t, []ir.Instruction{instr})
	}
	return s
}

func ensureUnloadedAfter(s ir.Sequence, target Anchor, unit string) ir.Sequence {
	t, ok := Locate(s, target)
	if !ok {
		return s
	}

	first := -1
	for i, instr := range s {
		if !ir.UnloadsModule(instr, unit) {
			continue
		}
		if i > t {
			return s
		}
		if first < 0 {
			first = i
		}
	}
	if first < 0 {
		return s
	}
	// first < t: after removal the target sits at t-1, so t is right after it.
	return splice(Remove(s, first), t, []ir.Instruction{s[first]})
}
