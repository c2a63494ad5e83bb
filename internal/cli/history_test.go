package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Frost/edeliver/internal/ir"
)

func TestHistory_RecordsAppliedRuns(t *testing.T) {
	dir := t.TempDir()
	pipeline := writeFile(t, dir, "upgrade.cue", testPipeline)
	set := writeFile(t, dir, "relup.json", testSet)
	db := filepath.Join(dir, "relup.db")

	var ids []string
	for i := 0; i < 2; i++ {
		out, err := execute(t, "apply", pipeline, set, "--journal", db, "--format", "json")
		require.NoError(t, err)
		var result ApplyResult
		decodeResponse(t, out, &result)
		ids = append(ids, result.RunID)
	}

	out, err := execute(t, "history", db, "--format", "json")
	require.NoError(t, err)
	var runs []RunSummary
	decodeResponse(t, out, &runs)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[0], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Equal(t, int64(1), runs[0].Seq)
	assert.Equal(t, int64(2), runs[1].Seq)
	assert.Equal(t, ir.RunSucceeded, runs[1].Status)
	assert.Equal(t, "0.2.0", runs[1].ToVersion)
	assert.Equal(t, runs[0].OutputFingerprint, runs[1].OutputFingerprint)

	out, err = execute(t, "history", db, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, ids[1])
	assert.NotContains(t, out, ids[0])
	assert.Contains(t, out, "upgrade (0.1.0 -> 0.2.0)")

	out, err = execute(t, "history", db, "--run", ids[0])
	require.NoError(t, err)
	assert.Contains(t, out, "status:   succeeded")
	assert.Contains(t, out, "step 0  info")
	assert.Contains(t, out, "up=4 down=3")
}

func TestHistory_FailedRun(t *testing.T) {
	dir := t.TempDir()
	pipeline := writeFile(t, dir, "bad.cue", `pipeline: {name: "bad", steps: [{use: "nope"}]}`)
	good := writeFile(t, dir, "good.cue", testPipeline)
	set := writeFile(t, dir, "relup.json", testSet)
	db := filepath.Join(dir, "relup.db")

	// Planning fails before a run is started, so nothing is journaled.
	_, err := execute(t, "apply", pipeline, set, "--journal", db)
	require.Error(t, err)

	_, err = execute(t, "apply", good, set, "--journal", db)
	require.NoError(t, err)

	out, err := execute(t, "history", db, "--format", "json", "--pipeline", "upgrade")
	require.NoError(t, err)
	var runs []RunSummary
	decodeResponse(t, out, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(1), runs[0].Seq)

	out, err = execute(t, "history", db, "--status", "succeeded", "--pipeline", "upgrade")
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded  upgrade")

	out, err = execute(t, "history", db, "--status", "failed")
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)

	out, err = execute(t, "history", db, "--pipeline", "other")
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)
}

func TestHistory_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "history", filepath.Join(dir, "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "journal not found")

	pipeline := writeFile(t, dir, "upgrade.cue", testPipeline)
	set := writeFile(t, dir, "relup.json", testSet)
	db := filepath.Join(dir, "relup.db")
	_, err = execute(t, "apply", pipeline, set, "--journal", db)
	require.NoError(t, err)

	_, err = execute(t, "history", db, "--status", "done")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid status "done"`)

	_, err = execute(t, "history", db, "--run", "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "run no-such-run not found")
}
