package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Frost/edeliver/internal/ir"
)

func writeCUE(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeCUE(t, `
pipelines: {
	upgrade: steps: [{use: "soft_purge"}]
	rollback: {
		name: "rollback"
		steps: [{use: "info", options: up_message: "hi"}]
	}
}
`)
	specs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "upgrade", specs[0].Name)
	assert.Equal(t, "rollback", specs[1].Name)
	assert.Equal(t, "hi", specs[1].Steps[0].Options["up_message"])
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read pipeline file")
}

func TestLoadFile_SyntaxErrorHasPosition(t *testing.T) {
	path := writeCUE(t, "pipeline: {\n  steps: [\n")
	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.cue")
}

func TestSelect(t *testing.T) {
	a := &ir.PipelineSpec{Name: "a"}
	b := &ir.PipelineSpec{Name: "b"}

	got, err := Select([]*ir.PipelineSpec{a}, "")
	require.NoError(t, err)
	assert.Same(t, a, got)

	got, err = Select([]*ir.PipelineSpec{a, b}, "b")
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = Select([]*ir.PipelineSpec{a, b}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "select one by name")

	_, err = Select([]*ir.PipelineSpec{a}, "c")
	assert.EqualError(t, err, `pipeline "c" not defined`)
}
