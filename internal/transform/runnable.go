package transform

import (
	"fmt"

	"github.com/Frost/edeliver/internal/edit"
	"github.com/Frost/edeliver/internal/ir"
)

// Placements of a runnable instruction relative to the commit point.
const (
	PlaceBeforePointOfNoReturn = "before_point_of_no_return"
	PlaceAfterPointOfNoReturn  = "after_point_of_no_return"
	PlaceAppendAfterCommit     = "append_after_point_of_no_return"
)

var validPlacements = map[string]bool{
	PlaceBeforePointOfNoReturn: true,
	PlaceAfterPointOfNoReturn:  true,
	PlaceAppendAfterCommit:     true,
}

// Runnable inserts Apply{Module, "run", Args} into both sides and keeps the
// module's load before the first run and its unload after the last run.
//
// Zero fields are taken from the step options: "module", "args" (a JSON
// array of terms) and "placement" (default append_after_point_of_no_return).
type Runnable struct {
	Module    string
	Args      []ir.Term
	Placement string
}

func (r Runnable) resolve(cfg Config) (Runnable, error) {
	out := r
	if out.Module == "" {
		out.Module = cfg.Option("module", "")
	}
	if out.Module == "" {
		return out, fmt.Errorf("runnable: \"module\" is required")
	}
	if out.Args == nil {
		if raw := cfg.Option("args", ""); raw != "" {
			t, err := ir.UnmarshalTerm([]byte(raw))
			if err != nil {
				return out, fmt.Errorf("runnable: args: %w", err)
			}
			list, ok := t.(ir.List)
			if !ok {
				return out, fmt.Errorf("runnable: args must be a JSON array, got %s", raw)
			}
			out.Args = list
		}
	}
	if out.Placement == "" {
		out.Placement = cfg.Option("placement", PlaceAppendAfterCommit)
	}
	if !validPlacements[out.Placement] {
		return out, fmt.Errorf("runnable: invalid placement %q", out.Placement)
	}
	return out, nil
}

// Validate checks that the runnable can be resolved from cfg.
func (r Runnable) Validate(cfg Config) error {
	_, err := r.resolve(cfg)
	return err
}

// Transform inserts the runnable instruction. An unresolvable configuration
// leaves the set unchanged; pipelines validate units before running them.
func (r Runnable) Transform(s ir.Set, cfg Config) ir.Set {
	rr, err := r.resolve(cfg)
	if err != nil {
		return s
	}
	call := ir.Run(rr.Module, rr.Args...)

	switch rr.Placement {
	case PlaceBeforePointOfNoReturn:
		s = edit.InsertBeforePointOfNoReturn(s, call)
	case PlaceAfterPointOfNoReturn:
		s = edit.InsertAfterPointOfNoReturn(s, call)
	default:
		s = edit.AppendAfterPointOfNoReturn(s, call)
	}

	s = edit.EnsureModuleLoadedBeforeFirstRun(s, rr.Module)
	return edit.EnsureModuleUnloadedAfterLastRun(s, rr.Module)
}
