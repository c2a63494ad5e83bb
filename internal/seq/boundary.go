package seq

import "github.com/Frost/edeliver/internal/ir"

// AppendAfterPointOfNoReturn inserts news as early as possible after the
// commit marker but before the first instruction that mutates code,
// processes or applications.
//
// A load of unit U immediately followed by Apply{U, "run", _} is the
// self-loading prologue of a runnable instruction; the pair is skipped as a
// whole and never taken as the boundary.
//
// If no mutating instruction follows the marker, or there is no marker,
// news are appended at the tail.
func AppendAfterPointOfNoReturn(s ir.Sequence, news ...ir.Instruction) ir.Sequence {
	marker, ok := Locate(s, PointOfNoReturn())
	if !ok {
		return Append(s, news...)
	}

	for i := marker + 1; i < len(s); i++ {
		if i+1 < len(s) && isSelfLoadingPair(s[i], s[i+1]) {
			i++ // skip the runnable too
			continue
		}
		if ir.Mutates(s[i]) {
			return splice(s, i, news)
		}
	}
	return Append(s, news...)
}

func isSelfLoadingPair(load, run ir.Instruction) bool {
	a, ok := run.(ir.Apply)
	if !ok || a.Function != ir.RunFunction {
		return false
	}
	return ir.LoadsModule(load, a.Module)
}
