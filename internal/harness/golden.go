package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/Frost/edeliver/internal/ir"
)

// Snapshot captures the deterministic outcome of a scenario execution.
// Fingerprints are left out so snapshots stay readable and survive changes
// to the hash domain.
type Snapshot struct {
	ScenarioName string
	RunID        string
	Output       ir.Set
	Steps        []ir.StepRecord
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, st := range s.Steps {
		steps[i] = map[string]any{
			"index":    st.Index,
			"unit":     st.Unit,
			"changed":  st.Changed(),
			"up_len":   st.UpLen,
			"down_len": st.DownLen,
		}
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"run_id":        s.RunID,
		"output":        s.Output,
		"steps":         steps,
	}
}

// MarshalSnapshot renders a result as canonical JSON.
func MarshalSnapshot(result *Result) ([]byte, error) {
	snap := Snapshot{
		ScenarioName: result.Scenario,
		RunID:        result.RunID,
		Output:       result.Output,
		Steps:        result.Steps,
	}
	return ir.MarshalCanonical(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot be run. A snapshot mismatch fails
// the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
