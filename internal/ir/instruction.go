package ir

// Instruction is a sealed interface over the closed set of upgrade
// instructions. Use a type switch to dispatch; anything not modeled here is
// represented as Opaque.
//
// Instructions are values. A pointer such as *LoadModule satisfies the
// interface but is not part of the set: the classifier reports false for
// it, the codec rejects it and Equal never matches it.
type Instruction interface {
	instruction() // Sealed - only the types in this file implement it
}

// PurgeMode controls how old code of a module is purged around a load.
// The empty value leaves the decision to the runtime default.
type PurgeMode string

const (
	SoftPurge   PurgeMode = "soft_purge"
	BrutalPurge PurgeMode = "brutal_purge"
)

// ValidPurgeModes defines allowed purge modes.
var ValidPurgeModes = map[PurgeMode]bool{
	"":          true,
	SoftPurge:   true,
	BrutalPurge: true,
}

// PointOfNoReturn is the commit marker. Any failure after it forces a
// restart of the whole system instead of a graceful abort.
type PointOfNoReturn struct{}

// LoadModule loads new code for an existing module.
type LoadModule struct {
	Module    string
	PrePurge  PurgeMode
	PostPurge PurgeMode
	DepMods   []string
}

// AddModule loads a module that did not exist in the previous version.
type AddModule struct {
	Module  string
	DepMods []string
}

// Load is the low-level form of a module load.
type Load struct {
	Module    string
	PrePurge  PurgeMode
	PostPurge PurgeMode
}

// Remove makes the current code of a module old.
type Remove struct {
	Module    string
	PrePurge  PurgeMode
	PostPurge PurgeMode
}

// Purge drops old code of the listed modules.
type Purge struct {
	Modules []string
}

// DeleteModule removes a module that no longer exists in the target version.
type DeleteModule struct {
	Module  string
	DepMods []string
}

// Update suspends the processes running a module, loads new code and runs
// their code change callback.
type Update struct {
	Module    string
	Change    Term
	PrePurge  PurgeMode
	PostPurge PurgeMode
	DepMods   []string
}

// ModuleExtra pairs a module with the extra argument handed to its code
// change callback.
type ModuleExtra struct {
	Module string
	Extra  Term
}

// CodeChange runs the code change callback of suspended processes.
// Mode is "up", "down" or empty.
type CodeChange struct {
	Mode    string
	Modules []ModuleExtra
}

// Start resumes the processes running the listed modules.
type Start struct {
	Modules []string
}

// Stop stops the processes running the listed modules.
type Stop struct {
	Modules []string
}

// AddApplication starts a new application. Type is the start type and may be
// empty.
type AddApplication struct {
	Application string
	Type        string
}

// RemoveApplication stops and unloads an application.
type RemoveApplication struct {
	Application string
}

// RestartApplication stops and restarts an application.
type RestartApplication struct {
	Application string
}

// RestartEmulator restarts the runtime after the upgrade.
type RestartEmulator struct{}

// RestartNewEmulator restarts the runtime with new core code before the
// remaining instructions run.
type RestartNewEmulator struct{}

// Apply invokes Module:Function(Args...). It carries both user logic and the
// dispatch form of a runnable instruction, Apply{Unit, "run", args}.
type Apply struct {
	Module   string
	Function string
	Args     []Term
}

// Opaque is any instruction outside the modeled set. It is carried through
// edits untouched and never classified. Name must not be a modeled op name;
// such a value cannot be encoded and matches no modeled instruction.
type Opaque struct {
	Name string
	Args []Term
}

func (PointOfNoReturn) instruction()    {}
func (LoadModule) instruction()         {}
func (AddModule) instruction()          {}
func (Load) instruction()               {}
func (Remove) instruction()             {}
func (Purge) instruction()              {}
func (DeleteModule) instruction()       {}
func (Update) instruction()             {}
func (CodeChange) instruction()         {}
func (Start) instruction()              {}
func (Stop) instruction()               {}
func (AddApplication) instruction()     {}
func (RemoveApplication) instruction()  {}
func (RestartApplication) instruction() {}
func (RestartEmulator) instruction()    {}
func (RestartNewEmulator) instruction() {}
func (Apply) instruction()              {}
func (Opaque) instruction()             {}

// RunFunction is the function name of a runnable instruction.
const RunFunction = "run"

// Run builds the runnable instruction Apply{unit, "run", args}.
func Run(unit string, args ...Term) Apply {
	return Apply{Module: unit, Function: RunFunction, Args: args}
}
