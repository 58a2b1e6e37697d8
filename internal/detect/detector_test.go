package detect

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyImpact(t *testing.T) {
	cases := []struct {
		name  string
		files []string
		want  string
	}{
		{"no files", nil, "none"},
		{"backend only", []string{"internal/a.go", "db/schema.sql"}, "backend"},
		{"frontend only", []string{"web/app.tsx", "web/app.css"}, "frontend"},
		{"both sides", []string{"internal/a.go", "web/app.tsx"}, "full-stack"},
		{"docs only", []string{"README.md", "docs/guide.rst"}, "docs"},
		{"config only", []string{"Makefile", ".golangci.yml"}, "config"},
		{"docs plus config", []string{"README.md", "Makefile"}, "config"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyImpact(tc.files))
		})
	}
}

func TestMergeImpacts(t *testing.T) {
	cases := []struct {
		name    string
		impacts []string
		want    string
	}{
		{"empty", nil, "none"},
		{"single", []string{"backend"}, "backend"},
		{"frontend and backend roots", []string{"frontend", "backend"}, "full-stack"},
		{"code dominates docs", []string{"backend", "docs"}, "backend"},
		{"non-code mix", []string{"docs", "config"}, "config"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := make(map[string]bool, len(tc.impacts))
			for _, i := range tc.impacts {
				set[i] = true
			}
			assert.Equal(t, tc.want, mergeImpacts(set))
		})
	}
}

func TestConfidenceWithoutHistoryUsesNeutralAccuracy(t *testing.T) {
	d := NewDetector("main", nil, nil)
	c := &Context{Kind: BranchFeature, Scope: Scope{Impact: "backend"}}

	got := d.confidence(context.Background(), c, 1.0)
	assert.InDelta(t, 0.6*1.0+0.4*0.5, got, 0.001)
}

func TestConfidenceBlendsHistoricalAccuracy(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	c := &Context{Kind: BranchFeature, Scope: Scope{Impact: "backend"}}
	require.NoError(t, h.RecordOutcome(ctx, c.Signature(), true))

	d := NewDetector("main", h, nil)
	got := d.confidence(ctx, c, 0.8)
	assert.InDelta(t, 0.6*0.8+0.4*1.0, got, 0.001)
}

func TestDetectPlainDirectoryStillFindsStacks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/svc\n\ngo 1.24.4\n")

	d := NewDetector("main", nil, nil)
	c, err := d.Detect(context.Background(), []string{dir}, Options{})
	require.NoError(t, err)

	assert.Equal(t, BranchUnknown, c.Kind)
	require.Len(t, c.Stacks, 1)
	assert.Equal(t, "go", c.Stacks[0].Language)
	assert.Equal(t, "none", c.Scope.Impact)
}

// initTestRepo creates a repository with one commit on a feature
// branch and one uncommitted modification.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "go.mod", "module example.com/svc\n\ngo 1.24.4\n")

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)

	sig := &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()}
	_, err = wt.Commit("initial", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	require.NoError(t, wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName("feature/PROJ-7-detector"),
		Create: true,
	}))

	// Uncommitted change picked up through worktree status.
	writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")

	return dir
}

func TestDetectGitRepository(t *testing.T) {
	dir := initTestRepo(t)

	d := NewDetector("master", nil, nil)
	c, err := d.Detect(context.Background(), []string{dir}, Options{})
	require.NoError(t, err)

	assert.Equal(t, "feature/PROJ-7-detector", c.Branch)
	assert.Equal(t, BranchFeature, c.Kind)
	assert.Equal(t, "PROJ-7", c.TaskID)
	assert.Contains(t, c.ModifiedFiles, "main.go")
	assert.Equal(t, "backend", c.Scope.Impact)
	assert.Greater(t, c.Confidence, 0.0)
}

func TestDetectMergesMultipleRoots(t *testing.T) {
	repoDir := initTestRepo(t)

	webDir := t.TempDir()
	writeFile(t, webDir, "package.json", `{"name": "web", "dependencies": {"react": "18"}}`)

	d := NewDetector("master", nil, nil)
	c, err := d.Detect(context.Background(), []string{repoDir, webDir}, Options{})
	require.NoError(t, err)

	assert.Equal(t, BranchFeature, c.Kind, "the classified root wins the branch fields")
	langs := make([]string, 0, len(c.Stacks))
	for _, s := range c.Stacks {
		langs = append(langs, s.Language)
	}
	assert.ElementsMatch(t, []string{"go", "node"}, langs)
}

func TestIncrementalFiltersByLastRun(t *testing.T) {
	dir := initTestRepo(t)
	h := openTestHistory(t)
	ctx := context.Background()

	// Last run recorded in the future: nothing has changed since.
	require.NoError(t, h.SetLastRun(ctx, dir, time.Now().Add(time.Hour)))

	d := NewDetector("master", h, nil)
	c, err := d.Detect(ctx, []string{dir}, Options{Incremental: true})
	require.NoError(t, err)
	assert.Empty(t, c.ModifiedFiles)

	// Last run before the modification: the file stays in scope.
	require.NoError(t, h.SetLastRun(ctx, dir, time.Now().Add(-time.Hour)))
	c, err = d.Detect(ctx, []string{dir}, Options{Incremental: true})
	require.NoError(t, err)
	assert.Contains(t, c.ModifiedFiles, "main.go")
}

func TestRecordRunUpdatesHistory(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()
	dir := t.TempDir()

	d := NewDetector("main", h, nil)
	c := &Context{Kind: BranchFeature, Scope: Scope{Impact: "backend"}}
	d.RecordRun(ctx, c, []string{dir}, true)

	acc, found, err := h.Accuracy(ctx, c.Signature())
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 1.0, acc, 0.001)

	_, found, err = h.LastRun(ctx, dir)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestReadGitStateNotARepo(t *testing.T) {
	_, err := readGitState(t.TempDir(), "main")
	require.ErrorIs(t, err, ErrNotGitRepo)
}
