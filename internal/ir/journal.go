package ir

// RunStatus is the lifecycle state of a journaled pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the journal record of one pipeline applied to one instruction set.
// Seq is a logical stamp from the engine clock; runs are ordered by it.
type RunRecord struct {
	ID           string
	Seq          int64
	Pipeline     string
	PipelineHash string
	Release      string
	FromVersion  string
	ToVersion    string

	Input             Set
	InputFingerprint  string
	Output            Set
	OutputFingerprint string

	Status        RunStatus
	Error         string
	StartedAt     string // set by the store
	EngineVersion string
	IRVersion     string
}

// StepRecord is the journal record of one transformation unit applied
// during a run.
type StepRecord struct {
	RunID   string
	Index   int
	Unit    string
	Before  string // fingerprint of the set handed to the unit
	After   string // fingerprint of the set it returned
	UpLen   int
	DownLen int
}

// Changed reports whether the unit altered the set.
func (r StepRecord) Changed() bool {
	return r.Before != r.After
}
