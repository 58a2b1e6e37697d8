// Package plan selects and validates the tool execution plan for a run.
package plan

import "errors"

// Strategy determines how the executor schedules tools.
type Strategy string

const (
	StrategySequential Strategy = "sequential"
	StrategyParallel   Strategy = "parallel"
	StrategyDependency Strategy = "dependency-aware"
)

// Mode names a plan-breadth policy.
type Mode string

const (
	// ModeFast runs only tools whose scope matches the modified files.
	ModeFast Mode = "fast"

	// ModeAuto runs the full stack-appropriate tool set in parallel.
	ModeAuto Mode = "auto"

	// ModeFull runs the maximal definition-of-done set with
	// dependency-aware ordering.
	ModeFull Mode = "full"
)

// Configuration errors raised during plan selection. Both abort the run
// before any tool executes.
var (
	ErrInvalidMode = errors.New("unrecognized plan mode")
	ErrEmptyPlan   = errors.New("plan selected no tools")
)

// Plan is the validated execution plan. It is created by Select,
// consumed once by the executor, and never mutated.
type Plan struct {
	Tools        []string            `json:"tools"`
	Mode         Mode                `json:"mode"`
	Strategy     Strategy            `json:"strategy"`
	Dependencies map[string][]string `json:"dependencies,omitempty"`

	// Files is the file scope handed to each tool. Empty means the
	// whole workspace.
	Files []string `json:"files,omitempty"`
}

// Validate reports whether the plan is executable: a non-empty tool
// list, an enumerated strategy, and dependencies that only reference
// tools present in the plan. It is a pure predicate.
func Validate(p *Plan) bool {
	if p == nil || len(p.Tools) == 0 {
		return false
	}

	switch p.Strategy {
	case StrategySequential, StrategyParallel, StrategyDependency:
	default:
		return false
	}

	present := make(map[string]bool, len(p.Tools))
	for _, t := range p.Tools {
		present[t] = true
	}
	for tool, deps := range p.Dependencies {
		if !present[tool] {
			return false
		}
		for _, dep := range deps {
			if !present[dep] {
				return false
			}
		}
	}

	return true
}
