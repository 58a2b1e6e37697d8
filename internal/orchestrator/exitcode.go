package orchestrator

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/qualgate/internal/executor"
	"github.com/fyrsmithlabs/qualgate/internal/plan"
	"github.com/fyrsmithlabs/qualgate/internal/tool"
)

// Process exit codes. The closed taxonomy CI pipelines key off.
const (
	ExitSuccess         = 0
	ExitCriticalFailure = 1
	ExitConfigError     = 2
	ExitTimeout         = 3
	ExitPermissionError = 4
	ExitInterrupt       = 130
)

// ExitCodeFor classifies a run error plus its (possibly partial)
// outcome into the exit-code taxonomy.
//
// Precedence: interrupt beats everything (the user asked to stop),
// then configuration errors (nothing ran), then permission failures,
// then timeouts, then critical tool failures.
func ExitCodeFor(err error, outcome *Outcome) int {
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return ExitInterrupt
		case errors.Is(err, plan.ErrInvalidMode),
			errors.Is(err, plan.ErrEmptyPlan),
			errors.Is(err, ErrInvalidPlan),
			errors.Is(err, executor.ErrDependencyCycle),
			errors.Is(err, tool.ErrUnknownTool):
			return ExitConfigError
		case errors.Is(err, tool.ErrSpawnDenied):
			return ExitPermissionError
		case errors.Is(err, context.DeadlineExceeded):
			return ExitTimeout
		}
	}

	if outcome != nil && outcome.Run != nil {
		if outcome.Run.CriticalTimedOut() {
			return ExitTimeout
		}
		if outcome.Run.CriticalFailed() {
			return ExitCriticalFailure
		}
	}

	if err != nil {
		// Unclassified stage error before tools ran: treat as
		// configuration.
		return ExitConfigError
	}

	return ExitSuccess
}
