package engine

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Frost/edeliver/internal/ir"
	"github.com/Frost/edeliver/internal/transform"
)

// Journal records pipeline runs. Implemented by *store.Store.
type Journal interface {
	BeginRun(ctx context.Context, run ir.RunRecord) error
	RecordStep(ctx context.Context, step ir.StepRecord) error
	FinishRun(ctx context.Context, run ir.RunRecord) error
}

// Step is a pipeline step with its unit resolved.
type Step struct {
	Index  int
	Use    string
	Unit   transform.Transformer
	Config transform.Config
}

// Plan is a pipeline whose steps have all been resolved and validated.
type Plan struct {
	Pipeline ir.PipelineSpec
	Hash     string
	Steps    []Step
}

// Result is the outcome of a successful run.
type Result struct {
	Run   ir.RunRecord
	Steps []ir.StepRecord
}

// Output returns the transformed set.
func (r *Result) Output() ir.Set {
	return r.Run.Output
}

// Job pairs a pipeline with the set it transforms, for RunAll.
type Job struct {
	Pipeline ir.PipelineSpec
	Input    ir.Set
}

// Engine resolves pipelines against a unit registry and runs them.
//
// Thread-safety: Run and RunAll may be called from any goroutine once the
// registry is fully populated.
type Engine struct {
	registry    *transform.Registry
	ids         RunIDGenerator
	clock       *Clock
	journal     Journal
	concurrency int
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithJournal records every run in j.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithRunIDs sets the run ID generator. Default: UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock sets the run sequence clock. Use NewClockAt to continue the
// numbering of an existing journal.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithConcurrency limits the number of runs RunAll executes at once.
// Zero or negative means unlimited.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// New creates an Engine resolving units from reg. A nil reg uses
// transform.DefaultRegistry.
func New(reg *transform.Registry, opts ...Option) *Engine {
	if reg == nil {
		reg = transform.DefaultRegistry()
	}
	e := &Engine{
		registry: reg,
		ids:      UUIDv7Generator{},
		clock:    NewClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan resolves every step of p and validates its configuration.
// The first failing step is reported as a *RunError.
func (e *Engine) Plan(p ir.PipelineSpec) (*Plan, error) {
	hash, err := ir.PipelineHash(p)
	if err != nil {
		return nil, &RunError{Code: ErrCodeFingerprint, Message: "hash pipeline", Step: -1, Err: err}
	}

	plan := &Plan{Pipeline: p, Hash: hash, Steps: make([]Step, 0, len(p.Steps))}
	for i, st := range p.Steps {
		unit, err := e.registry.Lookup(st.Use)
		if err != nil {
			return nil, &RunError{Code: ErrCodeUnknownUnit, Message: "resolve unit", Step: i, Unit: st.Use, Err: err}
		}
		cfg := transform.Config{
			Release:     p.Release,
			FromVersion: p.FromVersion,
			ToVersion:   p.ToVersion,
			Options:     st.Options,
			Up:          st.Up,
			Down:        st.Down,
		}
		if err := transform.Validate(unit, cfg); err != nil {
			return nil, &RunError{Code: ErrCodeInvalidStep, Message: "invalid step", Step: i, Unit: st.Use, Err: err}
		}
		plan.Steps = append(plan.Steps, Step{Index: i, Use: st.Use, Unit: unit, Config: cfg})
	}
	return plan, nil
}

// Run plans p and executes it on input.
func (e *Engine) Run(ctx context.Context, p ir.PipelineSpec, input ir.Set) (*Result, error) {
	plan, err := e.Plan(p)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, plan, input)
}

// Execute applies the planned steps to input in order.
//
// Every step is logged at debug level with the fingerprints of the set it
// received and returned. With a journal configured the run is recorded as
// running before the first step and finished as succeeded or failed.
func (e *Engine) Execute(ctx context.Context, plan *Plan, input ir.Set) (*Result, error) {
	run := ir.RunRecord{
		ID:            e.ids.Generate(),
		Seq:           e.clock.Next(),
		Pipeline:      plan.Pipeline.Name,
		PipelineHash:  plan.Hash,
		Release:       plan.Pipeline.Release,
		FromVersion:   plan.Pipeline.FromVersion,
		ToVersion:     plan.Pipeline.ToVersion,
		Input:         input,
		Status:        ir.RunRunning,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	log := Logger().With(zap.String("run_id", run.ID), zap.String("pipeline", run.Pipeline))

	fp, err := ir.Fingerprint(input)
	if err != nil {
		return nil, &RunError{Code: ErrCodeFingerprint, Message: "fingerprint input", RunID: run.ID, Step: -1, Err: err}
	}
	run.InputFingerprint = fp

	if e.journal != nil {
		if err := e.journal.BeginRun(ctx, run); err != nil {
			return nil, &RunError{Code: ErrCodeJournal, Message: "begin run", RunID: run.ID, Step: -1, Err: err}
		}
	}
	log.Debug("run started",
		zap.Int64("seq", run.Seq),
		zap.Int("steps", len(plan.Steps)),
		zap.String("input", short(fp)))

	res := &Result{Steps: make([]ir.StepRecord, 0, len(plan.Steps))}
	current := input
	for _, st := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return nil, e.fail(ctx, log, run, &RunError{
				Code: ErrCodeCancelled, Message: "run cancelled", RunID: run.ID, Step: st.Index, Unit: st.Use, Err: err,
			})
		}

		next := st.Unit.Transform(current, st.Config)
		nextFP, err := ir.Fingerprint(next)
		if err != nil {
			return nil, e.fail(ctx, log, run, &RunError{
				Code: ErrCodeFingerprint, Message: "fingerprint step output", RunID: run.ID, Step: st.Index, Unit: st.Use, Err: err,
			})
		}

		rec := ir.StepRecord{
			RunID:   run.ID,
			Index:   st.Index,
			Unit:    st.Use,
			Before:  fp,
			After:   nextFP,
			UpLen:   len(next.Up),
			DownLen: len(next.Down),
		}
		log.Debug("step applied",
			zap.Int("step", rec.Index),
			zap.String("unit", rec.Unit),
			zap.String("before", short(rec.Before)),
			zap.String("after", short(rec.After)),
			zap.Bool("changed", rec.Changed()),
			zap.Int("up_len", rec.UpLen),
			zap.Int("down_len", rec.DownLen))

		if e.journal != nil {
			if err := e.journal.RecordStep(ctx, rec); err != nil {
				return nil, e.fail(ctx, log, run, &RunError{
					Code: ErrCodeJournal, Message: "record step", RunID: run.ID, Step: st.Index, Unit: st.Use, Err: err,
				})
			}
		}
		res.Steps = append(res.Steps, rec)
		current, fp = next, nextFP
	}

	run.Output = current
	run.OutputFingerprint = fp
	run.Status = ir.RunSucceeded
	if e.journal != nil {
		if err := e.journal.FinishRun(ctx, run); err != nil {
			return nil, &RunError{Code: ErrCodeJournal, Message: "finish run", RunID: run.ID, Step: -1, Err: err}
		}
	}
	log.Info("run finished",
		zap.String("input", short(run.InputFingerprint)),
		zap.String("output", short(run.OutputFingerprint)),
		zap.Int("up_len", len(current.Up)),
		zap.Int("down_len", len(current.Down)))

	res.Run = run
	return res, nil
}

// fail marks run as failed in the journal and returns runErr.
// A journal error while doing so is logged, not returned.
func (e *Engine) fail(ctx context.Context, log *zap.Logger, run ir.RunRecord, runErr *RunError) error {
	log.Warn("run failed", zap.Error(runErr))
	if e.journal == nil {
		return runErr
	}
	run.Status = ir.RunFailed
	run.Error = runErr.Error()
	// ctx may be the reason for the failure.
	if err := e.journal.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		log.Error("journal: finish failed run", zap.Error(err))
	}
	return runErr
}

// RunAll runs independent jobs concurrently and returns their results in job
// order. The first error cancels the remaining runs and is returned; results
// of runs that completed are still filled in.
func (e *Engine) RunAll(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	eg, egCtx := errgroup.WithContext(ctx)
	if e.concurrency > 0 {
		eg.SetLimit(e.concurrency)
	}
	for i, job := range jobs {
		i, job := i, job
		eg.Go(func() error {
			res, err := e.Run(egCtx, job.Pipeline, job.Input)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	err := eg.Wait()
	return results, err
}

// short abbreviates a fingerprint for log output.
func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
