package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Frost/edeliver/internal/ir"
)

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: parse
description: all the parts
release: myapp
from_version: 0.1.0
to_version: 0.2.0
input:
  up:
    - {op: update, module: S, change: {tuple: [{atom: advanced}, 1]}}
    - {op: point_of_no_return}
  down:
    - {op: point_of_no_return}
steps:
  - use: runnable
    options:
      module: Mig
      args: [1, two, {atom: three}]
      placement: after_point_of_no_return
  - use: sleep
    options: {seconds: 3}
assertions:
  - type: contains
    side: up
    instruction: {op: point_of_no_return}
`))
	require.NoError(t, err)

	assert.Equal(t, "parse", sc.Name)
	assert.Equal(t, "0.2.0", sc.ToVersion)
	require.Len(t, sc.Input.Up, 2)
	assert.Equal(t, ir.Update{
		Module: "S",
		Change: ir.Tuple{ir.Atom("advanced"), ir.Int(1)},
	}, sc.Input.Up[0])

	spec, err := sc.pipelineSpec()
	require.NoError(t, err)
	assert.Equal(t, "parse", spec.Name)
	assert.Equal(t, "myapp", spec.Release)
	require.Len(t, spec.Steps, 2)
	assert.Equal(t, map[string]string{
		"module":    "Mig",
		"args":      `[1,"two",{"atom":"three"}]`,
		"placement": "after_point_of_no_return",
	}, spec.Steps[0].Options)
	assert.Equal(t, "3", spec.Steps[1].Options["seconds"])
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: x\ndescription: d\nstep: []\n",
			want: "field step not found",
		},
		{
			name: "missing name",
			yaml: "description: d\nsteps: [{use: info}]\nexpect_error: x\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: x\nsteps: [{use: info}]\nexpect_error: x\n",
			want: "description is required",
		},
		{
			name: "no pipeline",
			yaml: "name: x\ndescription: d\nexpect_error: x\n",
			want: "one of steps or pipeline is required",
		},
		{
			name: "both pipelines",
			yaml: "name: x\ndescription: d\npipeline: p.cue\nsteps: [{use: info}]\nexpect_error: x\n",
			want: "mutually exclusive",
		},
		{
			name: "nothing to check",
			yaml: "name: x\ndescription: d\nsteps: [{use: info}]\n",
			want: "one of expect, expect_error or assertions is required",
		},
		{
			name: "step without use",
			yaml: "name: x\ndescription: d\nsteps: [{options: {a: b}}]\nexpect_error: x\n",
			want: "steps[0]: use is required",
		},
		{
			name: "float option",
			yaml: "name: x\ndescription: d\nsteps: [{use: sleep, options: {seconds: 1.5}}]\nexpect_error: x\n",
			want: "float values are forbidden",
		},
		{
			name: "bad instruction",
			yaml: "name: x\ndescription: d\ninput: {up: [{module: A}]}\nsteps: [{use: info}]\nexpect_error: x\n",
			want: "missing \"op\"",
		},
		{
			name: "bad side",
			yaml: "name: x\ndescription: d\nsteps: [{use: info}]\nassertions: [{type: unchanged, side: sideways}]\n",
			want: "side must be",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\ndescription: d\nsteps: [{use: info}]\nassertions: [{type: sorted, side: up}]\n",
			want: "unknown assertion type",
		},
		{
			name: "order needs two",
			yaml: "name: x\ndescription: d\nsteps: [{use: info}]\nassertions: [{type: order, side: up, instructions: [{op: point_of_no_return}]}]\n",
			want: "at least two instructions",
		},
		{
			name: "contains needs instruction",
			yaml: "name: x\ndescription: d\nsteps: [{use: info}]\nassertions: [{type: contains, side: up}]\n",
			want: "instruction is required",
		},
		{
			name: "run guard needs unit",
			yaml: "name: x\ndescription: d\nsteps: [{use: info}]\nassertions: [{type: loaded_before_run, side: up}]\n",
			want: "unit is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_PipelineMustExist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: s
description: d
pipeline: missing.cue
expect_error: x
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline file not found")
}

func TestLoadScenarios_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	body := []byte("name: same\ndescription: d\nsteps: [{use: info}]\nexpect_error: x\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), body, 0o644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "same" already used`)
}

func TestLoadScenarios_Sorted(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	names := make([]string, len(scenarios))
	for i, sc := range scenarios {
		names[i] = sc.Name
	}
	assert.Equal(t, []string{
		"cue_pipeline",
		"info_after_commit",
		"insert_payload",
		"runnable_relocates_load",
		"soft_purge_then_info",
		"unknown_unit",
	}, names)
}
