package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qualgate/internal/config"
	"github.com/fyrsmithlabs/qualgate/internal/detect"
	"github.com/fyrsmithlabs/qualgate/internal/executor"
	"github.com/fyrsmithlabs/qualgate/internal/feedback"
	"github.com/fyrsmithlabs/qualgate/internal/logging"
	"github.com/fyrsmithlabs/qualgate/internal/orchestrator"
	"github.com/fyrsmithlabs/qualgate/internal/plan"
	"github.com/fyrsmithlabs/qualgate/internal/tool"
)

// app wires the services one CLI invocation needs. Construction is
// explicit; there are no lazily-initialized globals.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	history  *detect.History
	detector *detect.Detector
	feedback *feedback.Manager
}

// newApp loads config and constructs the shared services.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, &exitError{code: orchestrator.ExitConfigError, msg: err.Error()}
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, &exitError{code: orchestrator.ExitConfigError, msg: err.Error()}
	}

	// History is advisory: a broken database degrades confidence
	// scoring, it does not block the run.
	history, err := detect.OpenHistory(cfg.History.Path)
	if err != nil {
		log.Warn("pattern history unavailable", zap.Error(err))
		history = nil
	}

	store, err := feedback.NewStore(cfg.Reports.Dir, cfg.Reports.RetentionDays, log.Named("feedback"))
	if err != nil {
		return nil, fmt.Errorf("opening feedback store: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		history:  history,
		detector: detect.NewDetector(cfg.Workspace.BaseBranch, history, log.Named("detect")),
		feedback: feedback.NewManager(store, cfg.Reports.IssueRepo, log.Named("feedback")),
	}, nil
}

// orchestrator builds the run pipeline for one workspace root set.
func (a *app) orchestrator(dir string) *orchestrator.Orchestrator {
	manager := tool.NewManager(tool.DefaultRegistry(), tool.Params{
		Dir:     dir,
		Timeout: a.cfg.Execution.ToolTimeout,
	}, a.log.Named("tool"))

	controller := executor.NewController(manager, a.cfg.Execution.Workers, a.log.Named("executor"))
	selector := plan.NewSelector(a.log.Named("plan"))

	return orchestrator.New(a.detector, selector, manager, controller, a.feedback, a.log.Named("run"))
}

// close releases the app's resources.
func (a *app) close() {
	if a.history != nil {
		_ = a.history.Close()
	}
	_ = a.log.Sync()
}
