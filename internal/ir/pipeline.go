package ir

// PipelineSpec represents a compiled pipeline definition: an ordered chain
// of transformation units applied to one instruction set.
type PipelineSpec struct {
	Name        string     `json:"name"`
	Release     string     `json:"release,omitempty"`
	FromVersion string     `json:"from_version,omitempty"`
	ToVersion   string     `json:"to_version,omitempty"`
	Steps       []StepSpec `json:"steps"`
}

// StepSpec configures one transformation unit in a pipeline.
type StepSpec struct {
	Use     string            `json:"use"`               // registered unit name, e.g. "soft_purge"
	Options map[string]string `json:"options,omitempty"` // unit-specific options
	Up      Sequence          `json:"up,omitempty"`      // instructions supplied to the unit
	Down    Sequence          `json:"down,omitempty"`    // down-side instructions; empty = same as Up
}
