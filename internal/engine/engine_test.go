package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Frost/edeliver/internal/ir"
	"github.com/Frost/edeliver/internal/transform"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memJournal is an in-memory Journal.
type memJournal struct {
	mu       sync.Mutex
	begun    []ir.RunRecord
	steps    []ir.StepRecord
	finished []ir.RunRecord

	failStep bool
}

func (j *memJournal) BeginRun(_ context.Context, run ir.RunRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.begun = append(j.begun, run)
	return nil
}

func (j *memJournal) RecordStep(_ context.Context, step ir.StepRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.failStep {
		return errors.New("disk full")
	}
	j.steps = append(j.steps, step)
	return nil
}

func (j *memJournal) FinishRun(_ context.Context, run ir.RunRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finished = append(j.finished, run)
	return nil
}

var marker = ir.PointOfNoReturn{}

func inputSet() ir.Set {
	return ir.Set{
		Up:   ir.Sequence{ir.LoadModule{Module: "A", PrePurge: ir.BrutalPurge}, marker, ir.Update{Module: "S"}},
		Down: ir.Sequence{marker, ir.DeleteModule{Module: "A"}, ir.Update{Module: "S"}},
	}
}

func upgradePipeline() ir.PipelineSpec {
	return ir.PipelineSpec{
		Name:        "myapp-upgrade",
		Release:     "myapp",
		FromVersion: "1.0.0",
		ToVersion:   "1.1.0",
		Steps: []ir.StepSpec{
			{Use: transform.UnitSoftPurge},
			{Use: transform.UnitInfo, Options: map[string]string{"up_message": "up", "down_message": "down"}},
			{Use: transform.UnitRunnable, Options: map[string]string{"module": "Migrate"}},
		},
	}
}

func TestEngine_Run(t *testing.T) {
	e := New(nil, WithRunIDs(NewFixedGenerator("run-1")))

	res, err := e.Run(context.Background(), upgradePipeline(), inputSet())
	require.NoError(t, err)

	logUp := ir.Apply{Module: transform.DefaultLogger, Function: "info", Args: []ir.Term{ir.String("up")}}
	logDown := ir.Apply{Module: transform.DefaultLogger, Function: "info", Args: []ir.Term{ir.String("down")}}
	want := ir.Set{
		Up: ir.Sequence{
			ir.LoadModule{Module: "A", PrePurge: ir.SoftPurge}, marker, logUp, ir.Run("Migrate"), ir.Update{Module: "S"},
		},
		Down: ir.Sequence{
			logDown, marker, ir.Run("Migrate"), ir.DeleteModule{Module: "A"}, ir.Update{Module: "S"},
		},
	}
	assert.Equal(t, want, res.Output())

	assert.Equal(t, "run-1", res.Run.ID)
	assert.Equal(t, int64(1), res.Run.Seq)
	assert.Equal(t, ir.RunSucceeded, res.Run.Status)
	assert.Equal(t, "myapp", res.Run.Release)

	require.Len(t, res.Steps, 3)
	for i, st := range res.Steps {
		assert.Equal(t, i, st.Index)
		assert.True(t, st.Changed(), "step %d should change the set", i)
	}
	assert.Equal(t, res.Run.InputFingerprint, res.Steps[0].Before)
	assert.Equal(t, res.Steps[0].After, res.Steps[1].Before)
	assert.Equal(t, res.Run.OutputFingerprint, res.Steps[2].After)
	assert.Equal(t, 5, res.Steps[2].UpLen)
}

func TestEngine_RunIsDeterministic(t *testing.T) {
	e := New(nil)

	a, err := e.Run(context.Background(), upgradePipeline(), inputSet())
	require.NoError(t, err)
	b, err := e.Run(context.Background(), upgradePipeline(), inputSet())
	require.NoError(t, err)

	assert.NotEqual(t, a.Run.ID, b.Run.ID)
	assert.Less(t, a.Run.Seq, b.Run.Seq)
	assert.Equal(t, a.Run.OutputFingerprint, b.Run.OutputFingerprint)
	assert.Equal(t, a.Run.PipelineHash, b.Run.PipelineHash)
}

func TestEngine_UnchangedStep(t *testing.T) {
	e := New(nil)
	p := ir.PipelineSpec{Name: "noop", Steps: []ir.StepSpec{{Use: transform.UnitSoftPurge}}}
	in := ir.Set{Up: ir.Sequence{marker}, Down: ir.Sequence{marker}}

	res, err := e.Run(context.Background(), p, in)
	require.NoError(t, err)

	assert.False(t, res.Steps[0].Changed())
	assert.Equal(t, res.Run.InputFingerprint, res.Run.OutputFingerprint)
}

func TestEngine_Plan_UnknownUnit(t *testing.T) {
	e := New(nil)
	p := ir.PipelineSpec{Name: "bad", Steps: []ir.StepSpec{
		{Use: transform.UnitSoftPurge},
		{Use: "does_not_exist"},
	}}

	_, err := e.Plan(p)
	require.Error(t, err)
	assert.True(t, IsUnknownUnit(err))
	assert.True(t, errors.Is(err, transform.ErrUnknownUnit))

	var re *RunError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 1, re.Step)
	assert.Equal(t, "does_not_exist", re.Unit)
}

func TestEngine_Plan_InvalidStep(t *testing.T) {
	e := New(nil)
	p := ir.PipelineSpec{Name: "bad", Steps: []ir.StepSpec{{Use: transform.UnitSleep}}}

	_, err := e.Plan(p)
	require.Error(t, err)
	assert.True(t, IsInvalidStep(err))
	assert.Contains(t, err.Error(), "seconds")
}

func TestEngine_CustomRegistry(t *testing.T) {
	reg := transform.NewRegistry()
	require.NoError(t, reg.Register("tail", transform.Func(func(s ir.Set, cfg transform.Config) ir.Set {
		return ir.Set{
			Up:   append(append(ir.Sequence{}, s.Up...), ir.Run(cfg.Release)),
			Down: s.Down,
		}
	})))

	e := New(reg)
	res, err := e.Run(context.Background(),
		ir.PipelineSpec{Name: "p", Release: "rel", Steps: []ir.StepSpec{{Use: "tail"}}},
		ir.Set{})
	require.NoError(t, err)
	assert.Equal(t, ir.Sequence{ir.Run("rel")}, res.Output().Up)

	_, err = e.Plan(ir.PipelineSpec{Steps: []ir.StepSpec{{Use: transform.UnitSoftPurge}}})
	assert.True(t, IsUnknownUnit(err), "custom registry holds no built-ins")
}

func TestEngine_Journal(t *testing.T) {
	j := &memJournal{}
	e := New(nil, WithJournal(j), WithRunIDs(NewFixedGenerator("run-1")), WithClock(NewClockAt(10)))

	res, err := e.Run(context.Background(), upgradePipeline(), inputSet())
	require.NoError(t, err)

	require.Len(t, j.begun, 1)
	assert.Equal(t, ir.RunRunning, j.begun[0].Status)
	assert.Equal(t, int64(11), j.begun[0].Seq)

	assert.Equal(t, res.Steps, j.steps)

	require.Len(t, j.finished, 1)
	assert.Equal(t, ir.RunSucceeded, j.finished[0].Status)
	assert.Equal(t, res.Run.OutputFingerprint, j.finished[0].OutputFingerprint)
}

func TestEngine_JournalFailureFailsRun(t *testing.T) {
	j := &memJournal{failStep: true}
	e := New(nil, WithJournal(j), WithRunIDs(NewFixedGenerator("run-1")))

	_, err := e.Run(context.Background(), upgradePipeline(), inputSet())
	require.Error(t, err)

	var re *RunError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeJournal, re.Code)
	assert.Equal(t, 0, re.Step)

	require.Len(t, j.finished, 1)
	assert.Equal(t, ir.RunFailed, j.finished[0].Status)
	assert.Contains(t, j.finished[0].Error, "disk full")
}

func TestEngine_Cancelled(t *testing.T) {
	j := &memJournal{}
	e := New(nil, WithJournal(j))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, upgradePipeline(), inputSet())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	require.Len(t, j.finished, 1)
	assert.Equal(t, ir.RunFailed, j.finished[0].Status)
}

func TestEngine_RunAll(t *testing.T) {
	e := New(nil, WithConcurrency(2))

	jobs := make([]Job, 8)
	for i := range jobs {
		jobs[i] = Job{Pipeline: upgradePipeline(), Input: inputSet()}
	}

	results, err := e.RunAll(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, len(jobs))

	seqs := make(map[int64]bool)
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, results[0].Run.OutputFingerprint, r.Run.OutputFingerprint)
		seqs[r.Run.Seq] = true
	}
	assert.Len(t, seqs, len(jobs), "each run gets its own sequence number")
}

func TestEngine_RunAll_FirstErrorReturned(t *testing.T) {
	e := New(nil)
	jobs := []Job{
		{Pipeline: upgradePipeline(), Input: inputSet()},
		{Pipeline: ir.PipelineSpec{Name: "bad", Steps: []ir.StepSpec{{Use: "nope"}}}, Input: inputSet()},
	}

	results, err := e.RunAll(context.Background(), jobs)
	require.Error(t, err)
	assert.True(t, IsUnknownUnit(err))
	assert.Len(t, results, 2)
	assert.Nil(t, results[1])
}

func TestEngine_LogsSteps(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	e := New(nil, WithRunIDs(NewFixedGenerator("run-1")))
	_, err := e.Run(context.Background(), upgradePipeline(), inputSet())
	require.NoError(t, err)

	steps := logs.FilterMessage("step applied").All()
	require.Len(t, steps, 3)
	fields := steps[1].ContextMap()
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, transform.UnitInfo, fields["unit"])
	assert.Equal(t, int64(1), fields["step"])
	assert.Equal(t, true, fields["changed"])

	assert.Equal(t, 1, logs.FilterMessage("run finished").Len())
}

func TestRunError_Format(t *testing.T) {
	err := &RunError{Code: ErrCodeInvalidStep, Message: "invalid step", Step: 2, Unit: "sleep", Err: errors.New("bad seconds")}
	assert.Equal(t, "INVALID_STEP: invalid step: bad seconds (step=2, unit=sleep)", err.Error())

	err = &RunError{Code: ErrCodeJournal, Message: "begin run", RunID: "r", Step: -1}
	assert.Equal(t, "JOURNAL: begin run (run=r)", err.Error())
}
