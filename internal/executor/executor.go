// Package executor runs a validated plan against tool adapters under
// sequential, parallel, or dependency-aware strategies, enforcing
// per-tool timeouts and cooperative cancellation.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/qualgate/internal/plan"
	"github.com/fyrsmithlabs/qualgate/internal/tool"
)

// Status tracks each tool through the per-tool state machine:
// pending -> running -> {succeeded, failed, timed-out, skipped}.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed-out"
	StatusSkipped   Status = "skipped"
)

// ErrDependencyCycle indicates the declared dependency map is cyclic.
// It is a configuration error raised before any execution.
var ErrDependencyCycle = errors.New("dependency cycle in plan")

// Run is the outcome of executing a plan. Results are keyed by tool
// identity; the parallel strategy gives no completion-order guarantee.
type Run struct {
	Results  map[string]*tool.Result
	Statuses map[string]Status

	// StartOrder is the order tools were started in. Deterministic for
	// sequential and dependency-aware strategies.
	StartOrder []string
}

// CriticalFailed reports whether any critical tool failed.
func (r *Run) CriticalFailed() bool {
	for _, res := range r.Results {
		if res.Critical && !res.Success {
			return true
		}
	}
	return false
}

// CriticalTimedOut reports whether a critical tool's failure was a
// timeout.
func (r *Run) CriticalTimedOut() bool {
	for _, res := range r.Results {
		if res.Critical && !res.Success && res.TimedOut {
			return true
		}
	}
	return false
}

// ResultList returns the results as a slice for aggregation.
func (r *Run) ResultList() []tool.Result {
	out := make([]tool.Result, 0, len(r.Results))
	for _, id := range r.StartOrder {
		if res, ok := r.Results[id]; ok {
			out = append(out, *res)
		}
	}
	return out
}

// ProgressFunc receives (completed, total) after each tool finishes.
type ProgressFunc func(completed, total int)

// Controller executes plans.
type Controller struct {
	manager  *tool.Manager
	workers  int
	log      *zap.Logger
	progress ProgressFunc
}

// NewController creates a controller. workers bounds the parallel
// strategy's concurrency.
func NewController(manager *tool.Manager, workers int, log *zap.Logger) *Controller {
	if workers < 1 {
		workers = 1
	}
	return &Controller{manager: manager, workers: workers, log: log}
}

// OnProgress sets the per-tool completion callback.
func (c *Controller) OnProgress(fn ProgressFunc) {
	c.progress = fn
}

// Execute runs the plan. The returned Run is populated even when an
// error cut execution short; callers aggregate whatever completed.
func (c *Controller) Execute(ctx context.Context, p *plan.Plan) (*Run, error) {
	switch p.Strategy {
	case plan.StrategySequential:
		return c.runSequential(ctx, p.Tools, p.Files)
	case plan.StrategyParallel:
		return c.runParallel(ctx, p.Tools, p.Files)
	case plan.StrategyDependency:
		order, err := topoSort(p.Tools, p.Dependencies)
		if err != nil {
			return newRun(p.Tools), err
		}
		return c.runSequential(ctx, order, p.Files)
	default:
		return newRun(p.Tools), fmt.Errorf("unknown strategy %q", p.Strategy)
	}
}

func newRun(tools []string) *Run {
	r := &Run{
		Results:  make(map[string]*tool.Result, len(tools)),
		Statuses: make(map[string]Status, len(tools)),
	}
	for _, id := range tools {
		r.Statuses[id] = StatusPending
	}
	return r
}

// runSequential executes tools in order. A critical failure marks all
// not-yet-started tools skipped and stops execution.
func (c *Controller) runSequential(ctx context.Context, order []string, files []string) (*Run, error) {
	run := newRun(order)
	total := len(order)

	for i, id := range order {
		if err := ctx.Err(); err != nil {
			skipFrom(run, order, i)
			return run, err
		}

		res, err := c.executeOne(ctx, run, id, files)
		if err != nil {
			skipFrom(run, order, i+1)
			return run, err
		}
		c.reportProgress(i+1, total)

		if res.Critical && !res.Success {
			if c.log != nil {
				c.log.Warn("critical tool failed, skipping remainder",
					zap.String("tool", id), zap.Bool("timed_out", res.TimedOut))
			}
			skipFrom(run, order, i+1)
			return run, nil
		}
	}

	return run, nil
}

// runParallel starts all tools concurrently under the worker budget.
// A critical failure stops scheduling pending tools but lets running
// siblings finish; external cancellation aborts pending tools and
// signals running subprocesses through the context.
func (c *Controller) runParallel(ctx context.Context, tools []string, files []string) (*Run, error) {
	run := newRun(tools)
	run.StartOrder = nil
	total := len(tools)

	var (
		mu   sync.Mutex
		done atomic.Int32
		stop atomic.Bool
	)

	g := &errgroup.Group{}
	g.SetLimit(c.workers)

	var firstErr error
	for _, id := range tools {
		id := id
		g.Go(func() error {
			if stop.Load() || ctx.Err() != nil {
				mu.Lock()
				run.Statuses[id] = StatusSkipped
				mu.Unlock()
				c.reportProgress(int(done.Add(1)), total)
				return nil
			}

			mu.Lock()
			run.Statuses[id] = StatusRunning
			run.StartOrder = append(run.StartOrder, id)
			adapter := c.manager.Get(id)
			mu.Unlock()

			if adapter == nil {
				mu.Lock()
				run.Statuses[id] = StatusFailed
				if firstErr == nil {
					firstErr = fmt.Errorf("%w: %s", tool.ErrUnknownTool, id)
				}
				mu.Unlock()
				c.reportProgress(int(done.Add(1)), total)
				return nil
			}

			res, err := adapter.Execute(ctx, files)

			mu.Lock()
			if err != nil {
				run.Statuses[id] = StatusFailed
				if firstErr == nil {
					firstErr = err
				}
				stop.Store(true)
				mu.Unlock()
				c.reportProgress(int(done.Add(1)), total)
				return nil
			}

			run.Results[id] = res
			run.Statuses[id] = statusFor(res)
			if res.Critical && !res.Success {
				stop.Store(true)
			}
			mu.Unlock()
			c.reportProgress(int(done.Add(1)), total)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return run, err
	}
	if firstErr != nil {
		return run, firstErr
	}
	if err := ctx.Err(); err != nil {
		return run, err
	}
	return run, nil
}

// executeOne drives one tool through the state machine.
func (c *Controller) executeOne(ctx context.Context, run *Run, id string, files []string) (*tool.Result, error) {
	adapter := c.manager.Get(id)
	if adapter == nil {
		run.Statuses[id] = StatusFailed
		return nil, fmt.Errorf("%w: %s", tool.ErrUnknownTool, id)
	}

	run.Statuses[id] = StatusRunning
	run.StartOrder = append(run.StartOrder, id)

	if c.log != nil {
		c.log.Debug("tool starting", zap.String("tool", id))
	}

	res, err := adapter.Execute(ctx, files)
	if err != nil {
		run.Statuses[id] = StatusFailed
		return nil, err
	}

	run.Results[id] = res
	run.Statuses[id] = statusFor(res)

	if c.log != nil {
		c.log.Info("tool finished",
			zap.String("tool", id),
			zap.Bool("success", res.Success),
			zap.Int64("duration_ms", res.DurationMS))
	}
	return res, nil
}

func statusFor(res *tool.Result) Status {
	switch {
	case res.Success:
		return StatusSucceeded
	case res.TimedOut:
		return StatusTimedOut
	default:
		return StatusFailed
	}
}

// skipFrom marks all still-pending tools from index i on as skipped.
func skipFrom(run *Run, order []string, i int) {
	for _, id := range order[i:] {
		if run.Statuses[id] == StatusPending {
			run.Statuses[id] = StatusSkipped
		}
	}
}

func (c *Controller) reportProgress(completed, total int) {
	if c.progress != nil {
		c.progress(completed, total)
	}
}
