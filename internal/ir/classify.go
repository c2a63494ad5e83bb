package ir

// ModifiesCode reports whether i loads, replaces or removes code.
func ModifiesCode(i Instruction) bool {
	switch i.(type) {
	case LoadModule, AddModule, Load, Remove, Purge, DeleteModule:
		return true
	default:
		return false
	}
}

// ModifiesProcesses reports whether i suspends, changes, starts or stops
// processes.
func ModifiesProcesses(i Instruction) bool {
	switch i.(type) {
	case Update, CodeChange, Start, Stop:
		return true
	default:
		return false
	}
}

// ModifiesApplications reports whether i starts, stops or restarts an
// application or the runtime itself.
func ModifiesApplications(i Instruction) bool {
	switch i.(type) {
	case AddApplication, RemoveApplication, RestartApplication, RestartEmulator, RestartNewEmulator:
		return true
	default:
		return false
	}
}

// Mutates reports whether any of the three classifier predicates holds.
func Mutates(i Instruction) bool {
	return ModifiesCode(i) || ModifiesProcesses(i) || ModifiesApplications(i)
}

// LoadsModule reports whether i makes code of unit available:
// LoadModule, AddModule or Load for that unit.
func LoadsModule(i Instruction, unit string) bool {
	switch v := i.(type) {
	case LoadModule:
		return v.Module == unit
	case AddModule:
		return v.Module == unit
	case Load:
		return v.Module == unit
	default:
		return false
	}
}

// UnloadsModule reports whether i drops the current code of unit:
// DeleteModule or Remove for that unit.
func UnloadsModule(i Instruction, unit string) bool {
	switch v := i.(type) {
	case DeleteModule:
		return v.Module == unit
	case Remove:
		return v.Module == unit
	default:
		return false
	}
}

// IsRun reports whether i is the runnable instruction of unit, i.e.
// Apply{unit, "run", _} with any arguments.
func IsRun(i Instruction, unit string) bool {
	a, ok := i.(Apply)
	return ok && a.Module == unit && a.Function == RunFunction
}
