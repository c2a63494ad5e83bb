package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Frost/edeliver/internal/ir"
)

// Scenario defines an editing scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Input is the instruction set handed to the first step.
	Input SetSpec `yaml:"input"`

	// Steps is an inline pipeline. Exclusive with Pipeline.
	Steps []StepSpec `yaml:"steps,omitempty"`

	// Pipeline is a CUE pipeline file, relative to the scenario file.
	// Exclusive with Steps.
	Pipeline string `yaml:"pipeline,omitempty"`

	// PipelineName selects one pipeline when the file defines several.
	PipelineName string `yaml:"pipeline_name,omitempty"`

	// Release metadata handed to every unit of an inline pipeline.
	Release     string `yaml:"release,omitempty"`
	FromVersion string `yaml:"from_version,omitempty"`
	ToVersion   string `yaml:"to_version,omitempty"`

	// Expect is the exact expected output. A nil side is not checked.
	Expect *ExpectSpec `yaml:"expect,omitempty"`

	// ExpectError makes the scenario pass only if the run fails with an
	// error containing this text.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions check positional properties of the output.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// dir is the directory of the scenario file, for resolving Pipeline.
	dir string
}

// SetSpec is an instruction set in YAML form.
type SetSpec struct {
	Up   Sequence `yaml:"up"`
	Down Sequence `yaml:"down"`
}

// Set converts the spec to an ir.Set.
func (s SetSpec) Set() ir.Set {
	return ir.Set{Up: ir.Sequence(s.Up), Down: ir.Sequence(s.Down)}
}

// ExpectSpec is the expected output. Sides are pointers so that an omitted
// side is distinguishable from an expected empty one.
type ExpectSpec struct {
	Up   *Sequence `yaml:"up,omitempty"`
	Down *Sequence `yaml:"down,omitempty"`
}

// StepSpec is one inline pipeline step.
type StepSpec struct {
	Use     string         `yaml:"use"`
	Options map[string]any `yaml:"options,omitempty"`
	Up      Sequence       `yaml:"up,omitempty"`
	Down    Sequence       `yaml:"down,omitempty"`
}

// Sequence is an ir.Sequence decoded from YAML instruction objects, which
// use the same shape as the JSON form.
type Sequence ir.Sequence

// UnmarshalYAML decodes a list of instruction objects.
func (s *Sequence) UnmarshalYAML(n *yaml.Node) error {
	var raw []any
	if err := n.Decode(&raw); err != nil {
		return fmt.Errorf("line %d: instruction list: %w", n.Line, err)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	var seq ir.Sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*s = Sequence(seq)
	return nil
}

// Instruction is a single ir.Instruction decoded from YAML.
type Instruction struct {
	ir.Instruction
}

// UnmarshalYAML decodes one instruction object.
func (i *Instruction) UnmarshalYAML(n *yaml.Node) error {
	var raw map[string]any
	if err := n.Decode(&raw); err != nil {
		return fmt.Errorf("line %d: instruction: %w", n.Line, err)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	instr, err := ir.UnmarshalInstruction(data)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	i.Instruction = instr
	return nil
}

// Side names.
const (
	SideUp   = "up"
	SideDown = "down"
)

// Assertion validates a property of the output set.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Side is "up" or "down".
	Side string `yaml:"side"`

	// Instruction is the subject of contains, absent, count and
	// before_first_mutation.
	Instruction *Instruction `yaml:"instruction,omitempty"`

	// Instructions is the subject of order and adjacent.
	Instructions []Instruction `yaml:"instructions,omitempty"`

	// Unit is the subject of loaded_before_run and unloaded_after_run.
	Unit string `yaml:"unit,omitempty"`

	// Count is the expected number of occurrences (count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertContains            = "contains"
	AssertAbsent              = "absent"
	AssertCount               = "count"
	AssertOrder               = "order"
	AssertAdjacent            = "adjacent"
	AssertUnchanged           = "unchanged"
	AssertBeforeFirstMutation = "before_first_mutation"
	AssertLoadedBeforeRun     = "loaded_before_run"
	AssertUnloadedAfterRun    = "unloaded_after_run"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.dir = filepath.Dir(path)

	if sc.Pipeline != "" {
		p := sc.Pipeline
		if !filepath.IsAbs(p) {
			p = filepath.Join(sc.dir, p)
		}
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%s: pipeline file not found: %s", path, p)
		}
	}
	return sc, nil
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	names := make(map[string]string)
	for _, p := range paths {
		sc, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := names[sc.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", p, sc.Name, prev)
		}
		names[sc.Name] = p
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case len(s.Steps) > 0 && s.Pipeline != "":
		return fmt.Errorf("steps and pipeline are mutually exclusive")
	case len(s.Steps) == 0 && s.Pipeline == "":
		return fmt.Errorf("one of steps or pipeline is required")
	}

	for i, st := range s.Steps {
		if st.Use == "" {
			return fmt.Errorf("steps[%d]: use is required", i)
		}
		if _, err := stringOptions(st.Options); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	if s.Expect == nil && s.ExpectError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("one of expect, expect_error or assertions is required")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Side != SideUp && a.Side != SideDown {
		return fmt.Errorf("assertions[%d]: side must be %q or %q, got %q", index, SideUp, SideDown, a.Side)
	}

	switch a.Type {
	case AssertContains, AssertAbsent, AssertBeforeFirstMutation:
		if a.Instruction == nil {
			return fmt.Errorf("assertions[%d]: instruction is required for %s", index, a.Type)
		}
	case AssertCount:
		if a.Instruction == nil {
			return fmt.Errorf("assertions[%d]: instruction is required for count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertOrder, AssertAdjacent:
		if len(a.Instructions) < 2 {
			return fmt.Errorf("assertions[%d]: at least two instructions are required for %s", index, a.Type)
		}
	case AssertLoadedBeforeRun, AssertUnloadedAfterRun:
		if a.Unit == "" {
			return fmt.Errorf("assertions[%d]: unit is required for %s", index, a.Type)
		}
	case AssertUnchanged:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// stringOptions flattens YAML option values the way the CUE compiler does:
// scalars in plain form, lists and maps as JSON text. Floats are rejected.
func stringOptions(in map[string]any) (map[string]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case int:
			out[k] = strconv.Itoa(val)
		case bool:
			out[k] = strconv.FormatBool(val)
		case []any, map[string]any:
			data, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", k, err)
			}
			out[k] = string(data)
		case float64:
			return nil, fmt.Errorf("option %s: float values are forbidden - use int instead", k)
		default:
			return nil, fmt.Errorf("option %s: unsupported value %v (%T)", k, v, v)
		}
	}
	return out, nil
}
