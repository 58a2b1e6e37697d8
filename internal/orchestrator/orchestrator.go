// Package orchestrator drives a qualgate run end to end: detect the
// execution context, select and validate a plan, execute it, aggregate
// the results, and on failure feed the incident pipeline. It also maps
// run outcomes to the process exit-code taxonomy.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qualgate/internal/aggregate"
	"github.com/fyrsmithlabs/qualgate/internal/detect"
	"github.com/fyrsmithlabs/qualgate/internal/executor"
	"github.com/fyrsmithlabs/qualgate/internal/feedback"
	"github.com/fyrsmithlabs/qualgate/internal/plan"
	"github.com/fyrsmithlabs/qualgate/internal/tool"
)

// ErrInvalidPlan indicates plan validation failed; the plan never
// reaches the executor.
var ErrInvalidPlan = errors.New("plan failed validation")

// Options configures one run.
type Options struct {
	Mode        plan.Mode
	Roots       []string
	Incremental bool

	// Feedback enables incident-report generation on failure.
	Feedback bool
}

// StageProgress reports run progress at stage boundaries.
type StageProgress struct {
	Stage      string `json:"stage"`
	Percentage int    `json:"percentage"`
}

// ProgressFunc receives progress updates during a run.
type ProgressFunc func(StageProgress)

// Outcome is the full result of a run. It is returned even when the
// run failed, so downstream feedback and CI gating always have the
// report and the execution context to work with.
type Outcome struct {
	Context  *detect.Context
	Plan     *plan.Plan
	Run      *executor.Run
	Report   *aggregate.Report
	JSON     []byte
	Feedback *feedback.Report

	// Success is true iff no well-formed result failed.
	Success bool
}

// Orchestrator composes the run pipeline.
type Orchestrator struct {
	detector   *detect.Detector
	selector   *plan.Selector
	manager    *tool.Manager
	controller *executor.Controller
	feedback   *feedback.Manager
	log        *zap.Logger
	progress   ProgressFunc
}

// New creates an orchestrator. feedbackMgr may be nil when the
// feedback pipeline is disabled.
func New(detector *detect.Detector, selector *plan.Selector, manager *tool.Manager,
	controller *executor.Controller, feedbackMgr *feedback.Manager, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		detector:   detector,
		selector:   selector,
		manager:    manager,
		controller: controller,
		feedback:   feedbackMgr,
		log:        log,
	}
}

// OnProgress sets the stage-boundary progress callback.
func (o *Orchestrator) OnProgress(fn ProgressFunc) {
	o.progress = fn
}

// Run executes detect -> plan -> execute -> aggregate, feeding back on
// failure. Any stage error short-circuits the remaining stages; the
// partially-filled Outcome is still returned.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Outcome, error) {
	outcome := &Outcome{}
	o.report("detect", 0)

	// Normalize once so detection, the plan, and the last-run records
	// all see the same root set.
	roots, err := detect.ExpandRoots(opts.Roots)
	if err != nil {
		return outcome, fmt.Errorf("expanding workspace roots: %w", err)
	}

	execCtx, err := o.detector.Detect(ctx, roots, detect.Options{Incremental: opts.Incremental})
	if err != nil {
		return outcome, fmt.Errorf("context detection: %w", err)
	}
	outcome.Context = execCtx
	o.report("plan", 20)

	p, err := o.selector.Select(execCtx, plan.Options{Mode: opts.Mode})
	if err != nil {
		return outcome, err
	}
	if !plan.Validate(p) {
		return outcome, fmt.Errorf("%w: tools=%v strategy=%s", ErrInvalidPlan, p.Tools, p.Strategy)
	}
	outcome.Plan = p
	o.report("initialize", 30)

	if len(execCtx.Stacks) > 0 {
		o.manager.SetLanguage(execCtx.Stacks[0].Language)
	}
	if err := o.manager.Initialize(ctx, p.Tools); err != nil {
		return outcome, err
	}
	o.report("execute", 35)

	// Spread per-tool completion across the execute stage's progress
	// share.
	o.controller.OnProgress(func(completed, total int) {
		if total > 0 {
			o.report("execute", 35+(completed*45)/total)
		}
	})

	run, execErr := o.controller.Execute(ctx, p)
	outcome.Run = run
	o.report("aggregate", 80)

	// Aggregate whatever completed, even when execution was cut short;
	// the JSON artifact is the single source of truth for CI gating.
	outcome.JSON, outcome.Report = aggregate.JSONReport(run.ResultList())
	outcome.Success = outcome.Report.Passed()
	o.report("aggregate", 95)

	if execErr != nil {
		return outcome, execErr
	}

	o.finish(ctx, opts, roots, outcome)
	o.report("done", 100)
	return outcome, nil
}

// finish records pattern history and, on failure, drives the feedback
// pipeline. Neither failure aborts the run at this point.
func (o *Orchestrator) finish(ctx context.Context, opts Options, roots []string, outcome *Outcome) {
	o.detector.RecordRun(ctx, outcome.Context, roots, outcome.Success)

	if outcome.Success || !opts.Feedback || o.feedback == nil {
		return
	}

	fb, err := o.feedback.ReportIssue(outcome.Context, string(opts.Mode), outcome.Report)
	if err != nil {
		if o.log != nil {
			o.log.Warn("feedback report generation failed", zap.Error(err))
		}
		return
	}
	outcome.Feedback = fb
}

func (o *Orchestrator) report(stage string, pct int) {
	if o.progress != nil {
		o.progress(StageProgress{Stage: stage, Percentage: pct})
	}
	if o.log != nil {
		o.log.Debug("run progress", zap.String("stage", stage), zap.Int("percentage", pct))
	}
}
