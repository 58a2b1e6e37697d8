package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/qualgate/internal/aggregate"
	"github.com/fyrsmithlabs/qualgate/internal/detect"
	"github.com/fyrsmithlabs/qualgate/internal/executor"
	"github.com/fyrsmithlabs/qualgate/internal/feedback"
	"github.com/fyrsmithlabs/qualgate/internal/plan"
	"github.com/fyrsmithlabs/qualgate/internal/tool"
)

// passFailAdapter succeeds or fails by configuration.
type passFailAdapter struct {
	id       string
	critical bool
	fail     bool
}

func (a *passFailAdapter) Name() string {
	return a.id
}

func (a *passFailAdapter) Dimension() tool.Dimension {
	return tool.DimCodeQuality
}

func (a *passFailAdapter) Critical() bool {
	return a.critical
}

func (a *passFailAdapter) Initialize(context.Context) error {
	return nil
}

func (a *passFailAdapter) Execute(ctx context.Context, files []string) (*tool.Result, error) {
	res := &tool.Result{
		Tool:      a.id,
		Dimension: a.Dimension(),
		Success:   !a.fail,
		Critical:  a.critical,
	}
	if a.fail {
		res.Errors = []string{a.id + " found problems"}
	}
	return res, nil
}

// goToolSet covers the tool ids planned for a plain Go workspace.
var goToolSet = []string{"format", "type-check", "lint", "test", "build"}

func stubRegistry(failing map[string]bool) tool.Registry {
	critical := map[string]bool{"type-check": true, "test": true, "build": true}

	reg := make(tool.Registry, len(goToolSet))
	for _, id := range goToolSet {
		id := id
		reg[id] = func(tool.Params) (tool.Adapter, error) {
			return &passFailAdapter{id: id, critical: critical[id], fail: failing[id]}, nil
		}
	}
	return reg
}

// newTestOrchestrator wires an orchestrator over a plain Go workspace
// and a stub tool registry. history may be nil.
func newTestOrchestrator(t *testing.T, failing map[string]bool, history *detect.History) (*Orchestrator, string, *feedback.Store) {
	t.Helper()

	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "go.mod"),
		[]byte("module example.com/svc\n\ngo 1.24.4\n"), 0644))

	store, err := feedback.NewStore(t.TempDir(), 30, nil)
	require.NoError(t, err)

	detector := detect.NewDetector("main", history, nil)
	selector := plan.NewSelector(nil)
	manager := tool.NewManager(stubRegistry(failing), tool.Params{Dir: workspace}, nil)
	controller := executor.NewController(manager, 2, nil)
	fbMgr := feedback.NewManager(store, "acme/widgets", nil)

	return New(detector, selector, manager, controller, fbMgr, nil), workspace, store
}

func TestRunGreenPath(t *testing.T) {
	o, workspace, _ := newTestOrchestrator(t, nil, nil)

	var stages []string
	o.OnProgress(func(p StageProgress) {
		if len(stages) == 0 || stages[len(stages)-1] != p.Stage {
			stages = append(stages, p.Stage)
		}
	})

	outcome, err := o.Run(context.Background(), Options{
		Mode:  plan.ModeAuto,
		Roots: []string{workspace},
	})
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, ExitSuccess, ExitCodeFor(err, outcome))
	assert.ElementsMatch(t, goToolSet, outcome.Plan.Tools)
	assert.Len(t, outcome.Report.Results, len(goToolSet))
	assert.Equal(t, []string{"detect", "plan", "initialize", "execute", "aggregate", "done"}, stages)

	var decoded aggregate.Report
	require.NoError(t, json.Unmarshal(outcome.JSON, &decoded))
	assert.Equal(t, float64(100), decoded.Score)
}

func TestRunCriticalFailureFeedsBack(t *testing.T) {
	o, workspace, store := newTestOrchestrator(t, map[string]bool{"build": true}, nil)

	outcome, err := o.Run(context.Background(), Options{
		Mode:     plan.ModeAuto,
		Roots:    []string{workspace},
		Feedback: true,
	})
	require.NoError(t, err, "a failing tool is a result, not a run error")

	assert.False(t, outcome.Success)
	assert.Equal(t, ExitCriticalFailure, ExitCodeFor(err, outcome))

	require.NotNil(t, outcome.Feedback)
	assert.Equal(t, "build", outcome.Feedback.Tool)

	_, doc, getErr := store.Get(outcome.Feedback.ReportID)
	require.NoError(t, getErr)
	assert.Contains(t, doc, "build found problems")
}

func TestRunRecordsLastRunForDefaultRoots(t *testing.T) {
	history, err := detect.OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer history.Close()

	o, workspace, _ := newTestOrchestrator(t, nil, history)
	t.Chdir(workspace)
	ctx := context.Background()

	// No roots given: the run normalizes to the current directory and
	// must record its last-run stamp there, or incremental detection
	// never has a baseline.
	outcome, err := o.Run(ctx, Options{Mode: plan.ModeAuto})
	require.NoError(t, err)
	require.True(t, outcome.Success)

	_, found, err := history.LastRun(ctx, ".")
	require.NoError(t, err)
	assert.True(t, found)

	acc, found, err := history.Accuracy(ctx, outcome.Context.Signature())
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 1.0, acc, 0.001)
}

func TestRunFeedbackDisabled(t *testing.T) {
	o, workspace, store := newTestOrchestrator(t, map[string]bool{"build": true}, nil)

	outcome, err := o.Run(context.Background(), Options{
		Mode:  plan.ModeAuto,
		Roots: []string{workspace},
	})
	require.NoError(t, err)

	assert.Nil(t, outcome.Feedback)
	assert.Empty(t, store.List(feedback.ListFilter{}))
}

func TestRunFastModeWithoutChangesIsConfigError(t *testing.T) {
	o, workspace, _ := newTestOrchestrator(t, nil, nil)

	// A plain directory has no git diff, so fast mode has nothing to
	// scope to.
	outcome, err := o.Run(context.Background(), Options{
		Mode:  plan.ModeFast,
		Roots: []string{workspace},
	})
	require.ErrorIs(t, err, plan.ErrEmptyPlan)
	assert.Equal(t, ExitConfigError, ExitCodeFor(err, outcome))
	assert.Nil(t, outcome.Plan)
}

func TestRunInvalidModeIsConfigError(t *testing.T) {
	o, workspace, _ := newTestOrchestrator(t, nil, nil)

	outcome, err := o.Run(context.Background(), Options{
		Mode:  plan.Mode("turbo"),
		Roots: []string{workspace},
	})
	require.ErrorIs(t, err, plan.ErrInvalidMode)
	assert.Equal(t, ExitConfigError, ExitCodeFor(err, outcome))
}

func TestRunCancelledContext(t *testing.T) {
	o, workspace, _ := newTestOrchestrator(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := o.Run(ctx, Options{
		Mode:  plan.ModeAuto,
		Roots: []string{workspace},
	})
	require.Error(t, err)
	assert.Equal(t, ExitInterrupt, ExitCodeFor(err, outcome))
}
