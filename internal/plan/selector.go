package plan

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qualgate/internal/detect"
)

// fullSet is the definition-of-done tool list, in dependency order.
var fullSet = []string{"format", "type-check", "lint", "test", "security", "build"}

// fullDependencies declares the inter-tool ordering for ModeFull:
// linting and tests assume the code type-checks, the build gates on
// tests.
var fullDependencies = map[string][]string{
	"lint":  {"type-check"},
	"test":  {"type-check"},
	"build": {"test"},
}

// fastScope maps a tool id to the file suffixes it is worth running
// for. Tools absent here always qualify. Qualifying is a separate
// question from file-scoped invocation: format and lint receive the
// modified files as arguments, while the compile/test/build commands
// are package-granular and run workspace-wide once they qualify.
var fastScope = map[string][]string{
	"type-check": {".go", ".ts", ".tsx", ".py", ".rs"},
	"lint":       {".go", ".ts", ".tsx", ".js", ".jsx", ".py", ".rs", ".vue"},
	"format":     {".go", ".ts", ".tsx", ".js", ".jsx", ".py", ".rs", ".css", ".md"},
	"test":       {".go", ".ts", ".tsx", ".js", ".jsx", ".py", ".rs"},
	"build":      {".go", ".ts", ".tsx", ".py", ".rs", "package.json", "go.mod", "Cargo.toml", "pyproject.toml"},
	"security":   {"package.json", "go.mod", "go.sum", "requirements.txt", "pyproject.toml", "Cargo.lock"},
}

// Options adjusts plan selection.
type Options struct {
	Mode Mode
}

// Selector builds plans from a detected execution context.
type Selector struct {
	log *zap.Logger
}

// NewSelector creates a plan selector.
func NewSelector(log *zap.Logger) *Selector {
	return &Selector{log: log}
}

// Select produces a validated Plan for the context under the given
// mode. An unrecognized mode or an empty resulting tool set is a
// configuration error.
func (s *Selector) Select(ctx *detect.Context, opts Options) (*Plan, error) {
	var p *Plan
	switch opts.Mode {
	case ModeFast:
		p = s.selectFast(ctx)
	case ModeAuto:
		p = s.selectAuto(ctx)
	case ModeFull:
		p = s.selectFull(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, opts.Mode)
	}

	if len(p.Tools) == 0 {
		return nil, fmt.Errorf("%w: mode %s over %d modified files", ErrEmptyPlan, opts.Mode, len(ctx.ModifiedFiles))
	}

	if s.log != nil {
		s.log.Info("plan selected",
			zap.String("mode", string(p.Mode)),
			zap.String("strategy", string(p.Strategy)),
			zap.Strings("tools", p.Tools),
			zap.Int("files", len(p.Files)))
	}

	return p, nil
}

// selectFast restricts tools and file scope to the modified set. Tool
// count and per-tool file sets are both minimized.
func (s *Selector) selectFast(ctx *detect.Context) *Plan {
	recommended := recommendedTools(ctx)

	var tools []string
	for _, tool := range recommended {
		if toolAppliesTo(tool, ctx.ModifiedFiles) {
			tools = append(tools, tool)
		}
	}

	return &Plan{
		Tools:    tools,
		Mode:     ModeFast,
		Strategy: StrategySequential,
		Files:    ctx.ModifiedFiles,
	}
}

// selectAuto selects the full stack-appropriate set with a parallel
// strategy and whole-workspace scope.
func (s *Selector) selectAuto(ctx *detect.Context) *Plan {
	return &Plan{
		Tools:    recommendedTools(ctx),
		Mode:     ModeAuto,
		Strategy: StrategyParallel,
	}
}

// selectFull selects the maximal tool set with dependency-aware
// ordering, independent of what changed.
func (s *Selector) selectFull(ctx *detect.Context) *Plan {
	tools := make([]string, len(fullSet))
	copy(tools, fullSet)

	deps := make(map[string][]string, len(fullDependencies))
	for tool, d := range fullDependencies {
		deps[tool] = append([]string(nil), d...)
	}

	return &Plan{
		Tools:        tools,
		Mode:         ModeFull,
		Strategy:     StrategyDependency,
		Dependencies: deps,
	}
}

// recommendedTools merges the per-stack recommendations, keeping the
// fullSet ordering and deduplicating across stacks.
func recommendedTools(ctx *detect.Context) []string {
	want := make(map[string]bool)
	for _, stack := range ctx.Stacks {
		for _, tool := range stack.RecommendedTools {
			want[tool] = true
		}
	}

	var tools []string
	for _, tool := range fullSet {
		if want[tool] {
			tools = append(tools, tool)
			delete(want, tool)
		}
	}

	// Stack-specific tools outside the canonical list, in stable order.
	var extra []string
	for tool := range want {
		extra = append(extra, tool)
	}
	sort.Strings(extra)
	return append(tools, extra...)
}

// toolAppliesTo reports whether any modified file falls in the tool's
// fast-mode scope.
func toolAppliesTo(tool string, files []string) bool {
	patterns, scoped := fastScope[tool]
	if !scoped {
		return len(files) > 0
	}
	for _, f := range files {
		for _, pat := range patterns {
			if strings.HasSuffix(f, pat) {
				return true
			}
		}
	}
	return false
}
