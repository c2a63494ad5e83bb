package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceJSON(t *testing.T) {
	data := `[
		{"op": "load_module", "module": "A", "pre_purge": "soft_purge", "post_purge": "brutal_purge", "dep_mods": ["B"]},
		{"op": "point_of_no_return"},
		{"op": "apply", "module": "A", "function": "run", "args": [1, "two", {"atom": "three"}, [true], {"tuple": [{"atom": "ok"}]}]},
		{"op": "update", "module": "S", "change": {"tuple": [{"atom": "advanced"}, []]}},
		{"op": "code_change", "mode": "up", "changes": [{"module": "S", "extra": {"atom": "x"}}]},
		{"op": "add_application", "application": "app", "type": "permanent"},
		{"op": "sync_nodes", "args": [{"atom": "id"}]}
	]`

	var s Sequence
	require.NoError(t, json.Unmarshal([]byte(data), &s))
	require.Len(t, s, 7)

	assert.Equal(t, LoadModule{Module: "A", PrePurge: SoftPurge, PostPurge: BrutalPurge, DepMods: []string{"B"}}, s[0])
	assert.Equal(t, PointOfNoReturn{}, s[1])
	assert.Equal(t, Apply{Module: "A", Function: "run", Args: []Term{
		Int(1), String("two"), Atom("three"), List{Bool(true)}, Tuple{Atom("ok")},
	}}, s[2])
	assert.Equal(t, Update{Module: "S", Change: Tuple{Atom("advanced"), List{}}}, s[3])
	assert.Equal(t, CodeChange{Mode: "up", Modules: []ModuleExtra{{Module: "S", Extra: Atom("x")}}}, s[4])
	assert.Equal(t, AddApplication{Application: "app", Type: "permanent"}, s[5])
	assert.Equal(t, Opaque{Name: "sync_nodes", Args: []Term{Atom("id")}}, s[6])

	out, err := json.Marshal(s)
	require.NoError(t, err)

	var again Sequence
	require.NoError(t, json.Unmarshal(out, &again))
	assert.True(t, EqualSequences(s, again))
}

func TestUnmarshalInstruction_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing op", `{"module": "A"}`, "missing \"op\""},
		{"missing module", `{"op": "load_module"}`, "\"module\" is required"},
		{"missing application", `{"op": "restart_application"}`, "\"application\" is required"},
		{"missing function", `{"op": "apply", "module": "A"}`, "\"function\" is required"},
		{"bad purge", `{"op": "load_module", "module": "A", "pre_purge": "gentle"}`, "invalid purge mode"},
		{"unknown field", `{"op": "load_module", "module": "A", "modul": "B"}`, "unknown field"},
		{"float arg", `{"op": "apply", "module": "A", "function": "run", "args": [1.5]}`, "floats"},
		{"null arg", `{"op": "apply", "module": "A", "function": "run", "args": [null]}`, "null"},
		{"field on marker", `{"op": "point_of_no_return", "module": "X"}`, "point_of_no_return: unexpected field module"},
		{"function on load", `{"op": "load_module", "module": "A", "function": "f"}`, "load_module: unexpected field function"},
		{"purge on add_module", `{"op": "add_module", "module": "A", "pre_purge": "soft_purge"}`, "unexpected field pre_purge"},
		{"opaque with fields", `{"op": "sync_nodes", "module": "M", "function": "f", "args": [{"atom": "id"}]}`,
			`sync_nodes: opaque instructions carry only "args", got function, module`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalInstruction([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOpaqueRoundTrip(t *testing.T) {
	data := `[{"op": "sync_nodes", "args": [{"atom": "id"}, [1, 2]]}, {"op": "sync_nodes"}]`

	var s Sequence
	require.NoError(t, json.Unmarshal([]byte(data), &s))
	want := Sequence{
		Opaque{Name: "sync_nodes", Args: []Term{Atom("id"), List{Int(1), Int(2)}}},
		Opaque{Name: "sync_nodes"},
	}
	assert.Equal(t, want, s)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"op": "sync_nodes", "args": [{"atom": "id"}, [1, 2]]}, {"op": "sync_nodes"}]`, string(out))
}

func TestOpaqueNeverBecomesModeled(t *testing.T) {
	for _, name := range []string{OpPointOfNoReturn, OpRestartEmulator, OpLoadModule} {
		t.Run(name, func(t *testing.T) {
			o := Opaque{Name: name}

			_, err := MarshalInstruction(o)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "shadows a modeled op")

			_, err = json.Marshal(Sequence{o})
			assert.Error(t, err)

			_, ok := Key(o)
			assert.False(t, ok)
			assert.True(t, Equal(o, Opaque{Name: name}))
		})
	}

	assert.False(t, Equal(Opaque{Name: OpPointOfNoReturn}, PointOfNoReturn{}))
	assert.False(t, Equal(PointOfNoReturn{}, Opaque{Name: OpPointOfNoReturn}))
	assert.False(t, Equal(Opaque{Name: OpRestartEmulator}, RestartEmulator{}))
	assert.False(t, Mutates(Opaque{Name: OpRestartEmulator}))
	assert.True(t, IsModeledOp(OpApply))
	assert.False(t, IsModeledOp("sync_nodes"))
}

func TestPointerInstructionsRejected(t *testing.T) {
	_, err := MarshalInstruction(&LoadModule{Module: "A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a value, not a pointer")

	_, ok := Key(&PointOfNoReturn{})
	assert.False(t, ok)

	assert.False(t, Equal(&LoadModule{Module: "A"}, LoadModule{Module: "A"}))
	assert.False(t, Equal(&LoadModule{Module: "A"}, &LoadModule{Module: "A"}))
	assert.False(t, ModifiesCode(&LoadModule{Module: "A"}))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(PointOfNoReturn{}, PointOfNoReturn{}))
	assert.True(t, Equal(LoadModule{Module: "A"}, LoadModule{Module: "A", DepMods: []string{}}))
	assert.True(t, Equal(Run("A"), Apply{Module: "A", Function: "run", Args: []Term{}}))
	assert.False(t, Equal(LoadModule{Module: "A"}, AddModule{Module: "A"}))
	assert.False(t, Equal(Run("A", Int(1)), Run("A", Int(2))))
	assert.False(t, Equal(Opaque{Name: "load_module"}, PointOfNoReturn{}))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, PointOfNoReturn{}))
}

func TestFormatInstruction(t *testing.T) {
	assert.Equal(t, "point_of_no_return", FormatInstruction(PointOfNoReturn{}))
	assert.Equal(t, "load_module(A)", FormatInstruction(LoadModule{Module: "A"}))
	assert.Equal(t, "load_module(A, soft_purge/soft_purge)", FormatInstruction(LoadModule{Module: "A", PrePurge: SoftPurge, PostPurge: SoftPurge}))
	assert.Equal(t, `apply(Logger.info, "x")`, FormatInstruction(Apply{Module: "Logger", Function: "info", Args: []Term{String("x")}}))
	assert.Equal(t, "apply(A.run)", FormatInstruction(Run("A")))
	assert.Equal(t, "sync_nodes(id, [1, 2])", FormatInstruction(Opaque{Name: "sync_nodes", Args: []Term{Atom("id"), List{Int(1), Int(2)}}}))
}
