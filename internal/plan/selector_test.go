package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/qualgate/internal/detect"
)

func goContext(modified ...string) *detect.Context {
	return &detect.Context{
		Branch:        "feature/PROJ-123-add-widget",
		Kind:          detect.BranchFeature,
		ModifiedFiles: modified,
		Stacks: []detect.Stack{{
			Language:         "go",
			RecommendedTools: []string{"format", "type-check", "lint", "test", "security", "build"},
		}},
	}
}

func TestSelectRejectsUnknownMode(t *testing.T) {
	s := NewSelector(nil)
	_, err := s.Select(goContext("main.go"), Options{Mode: "turbo"})
	require.ErrorIs(t, err, ErrInvalidMode)
}

func TestSelectFastScopesToolsToModifiedFiles(t *testing.T) {
	s := NewSelector(nil)

	p, err := s.Select(goContext("internal/a.go", "internal/b.go"), Options{Mode: ModeFast})
	require.NoError(t, err)
	require.True(t, Validate(p))

	assert.Equal(t, ModeFast, p.Mode)
	assert.Equal(t, StrategySequential, p.Strategy)
	assert.Equal(t, []string{"internal/a.go", "internal/b.go"}, p.Files)

	// Two .go files touched, no manifest: the dependency audit stays out.
	assert.Contains(t, p.Tools, "lint")
	assert.Contains(t, p.Tools, "type-check")
	assert.NotContains(t, p.Tools, "security")
}

func TestSelectFastIncludesSecurityOnManifestChange(t *testing.T) {
	s := NewSelector(nil)

	p, err := s.Select(goContext("go.mod"), Options{Mode: ModeFast})
	require.NoError(t, err)
	assert.Contains(t, p.Tools, "security")
	assert.NotContains(t, p.Tools, "lint")
}

func TestSelectFastScopesNonCodeChanges(t *testing.T) {
	s := NewSelector(nil)

	// Docs-only change: formatting covers markdown, but nothing that
	// compiles, tests, or builds is affected.
	p, err := s.Select(goContext("README.md"), Options{Mode: ModeFast})
	require.NoError(t, err)

	assert.Equal(t, []string{"format"}, p.Tools)
	assert.NotContains(t, p.Tools, "test")
	assert.NotContains(t, p.Tools, "build")
}

func TestSelectFastCodeChangeQualifiesTestAndBuild(t *testing.T) {
	s := NewSelector(nil)

	p, err := s.Select(goContext("internal/a.go"), Options{Mode: ModeFast})
	require.NoError(t, err)

	assert.Contains(t, p.Tools, "test")
	assert.Contains(t, p.Tools, "build")
	assert.Equal(t, []string{"internal/a.go"}, p.Files)
}

func TestSelectFastEmptyChangeSetIsError(t *testing.T) {
	s := NewSelector(nil)
	_, err := s.Select(goContext(), Options{Mode: ModeFast})
	require.ErrorIs(t, err, ErrEmptyPlan)
}

func TestSelectAutoRunsParallelOverWholeWorkspace(t *testing.T) {
	s := NewSelector(nil)

	p, err := s.Select(goContext("main.go"), Options{Mode: ModeAuto})
	require.NoError(t, err)
	require.True(t, Validate(p))

	assert.Equal(t, StrategyParallel, p.Strategy)
	assert.Empty(t, p.Files, "auto mode scans the whole workspace")
	assert.Equal(t, fullSet, p.Tools)
}

func TestSelectAutoMergesStacks(t *testing.T) {
	ctx := goContext("main.go")
	ctx.Stacks = append(ctx.Stacks, detect.Stack{
		Language:         "node",
		RecommendedTools: []string{"type-check", "lint", "test"},
	})

	p, err := NewSelector(nil).Select(ctx, Options{Mode: ModeAuto})
	require.NoError(t, err)

	// Shared tool ids appear once.
	seen := make(map[string]int)
	for _, tool := range p.Tools {
		seen[tool]++
	}
	for tool, n := range seen {
		assert.Equal(t, 1, n, tool)
	}
}

func TestSelectFullDeclaresDependencies(t *testing.T) {
	s := NewSelector(nil)

	p, err := s.Select(goContext(), Options{Mode: ModeFull})
	require.NoError(t, err)
	require.True(t, Validate(p))

	assert.Equal(t, StrategyDependency, p.Strategy)
	assert.Equal(t, fullSet, p.Tools)
	assert.Equal(t, []string{"type-check"}, p.Dependencies["lint"])
	assert.Equal(t, []string{"test"}, p.Dependencies["build"])
}

func TestSelectFullReturnsCopies(t *testing.T) {
	s := NewSelector(nil)

	p1, err := s.Select(goContext(), Options{Mode: ModeFull})
	require.NoError(t, err)
	p2, err := s.Select(goContext(), Options{Mode: ModeFull})
	require.NoError(t, err)

	p1.Tools[0] = "tampered"
	p1.Dependencies["lint"][0] = "tampered"

	assert.Equal(t, "format", p2.Tools[0])
	assert.Equal(t, "type-check", p2.Dependencies["lint"][0])
}
