package ir

// Version constants for the instruction schema and the editing engine.
const (
	// IRVersion is the instruction JSON schema version.
	IRVersion = "1"

	// EngineVersion is the relup editing engine version.
	EngineVersion = "0.1.0"
)
