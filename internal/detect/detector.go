package detect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Confidence weighting between the branch pattern match and the
// historical accuracy of that pattern.
const (
	clarityWeight    = 0.6
	historicalWeight = 0.4

	// neutralAccuracy stands in for patterns with no history yet.
	neutralAccuracy = 0.5
)

// Options adjusts a detection pass.
type Options struct {
	// Incremental restricts the modified set to files touched since the
	// last recorded run for each root.
	Incremental bool
}

// Detector builds the execution context for a run.
type Detector struct {
	baseBranch string
	history    *History
	log        *zap.Logger
}

// NewDetector creates a detector. history may be nil, in which case
// confidence uses the neutral accuracy and incremental detection is
// unavailable.
func NewDetector(baseBranch string, history *History, log *zap.Logger) *Detector {
	return &Detector{baseBranch: baseBranch, history: history, log: log}
}

// Detect builds one combined Context across the given roots. The
// returned context is complete and is not mutated afterwards.
func (d *Detector) Detect(ctx context.Context, roots []string, opts Options) (*Context, error) {
	if len(roots) == 0 {
		roots = []string{"."}
	}

	combined := &Context{Kind: BranchUnknown}
	clarity := 0.3
	seenFiles := make(map[string]bool)
	seenStacks := make(map[string]bool)
	impacts := make(map[string]bool)

	for _, root := range roots {
		rc, rootClarity, err := d.detectRoot(ctx, root, opts)
		if err != nil {
			return nil, err
		}

		// The first root with a real branch classification wins; all
		// roots of a monorepo share the repository anyway.
		if combined.Kind == BranchUnknown && rc.Kind != BranchUnknown {
			combined.Branch = rc.Branch
			combined.Kind = rc.Kind
			combined.TaskID = rc.TaskID
			clarity = rootClarity
		} else if combined.Branch == "" {
			combined.Branch = rc.Branch
		}

		for _, f := range rc.ModifiedFiles {
			if !seenFiles[f] {
				seenFiles[f] = true
				combined.ModifiedFiles = append(combined.ModifiedFiles, f)
			}
		}
		for _, s := range rc.Stacks {
			key := s.Language + "/" + s.Framework
			if !seenStacks[key] {
				seenStacks[key] = true
				combined.Stacks = append(combined.Stacks, s)
			}
		}
		if rc.Scope.Impact != "none" {
			impacts[rc.Scope.Impact] = true
		}
		combined.Scope.LinesChanged += rc.Scope.LinesChanged
	}

	sort.Strings(combined.ModifiedFiles)
	combined.Scope.Impact = mergeImpacts(impacts)
	combined.Confidence = d.confidence(ctx, combined, clarity)

	if d.log != nil {
		d.log.Debug("context detected",
			zap.String("branch", combined.Branch),
			zap.String("kind", string(combined.Kind)),
			zap.Int("modified_files", len(combined.ModifiedFiles)),
			zap.String("impact", combined.Scope.Impact),
			zap.Float64("confidence", combined.Confidence))
	}

	return combined, nil
}

// detectRoot builds the per-root context slice and its pattern clarity.
func (d *Detector) detectRoot(ctx context.Context, root string, opts Options) (*Context, float64, error) {
	rc := &Context{Kind: BranchUnknown, Scope: Scope{Impact: "none"}}
	clarity := 0.3

	state, err := readGitState(root, d.baseBranch)
	switch {
	case err == nil:
		rc.Branch = state.branch
		rc.Kind, rc.TaskID, clarity = classifyBranch(state.branch)
		rc.ModifiedFiles = state.modified
		rc.Scope.LinesChanged = state.linesChanged
	case isNotRepo(err):
		// A plain directory still gets stack detection; branch kind
		// stays unknown with floor clarity.
		if d.log != nil {
			d.log.Warn("root is not a git repository", zap.String("root", root))
		}
	default:
		return nil, 0, err
	}

	if opts.Incremental && d.history != nil {
		rc.ModifiedFiles = d.filterSinceLastRun(ctx, root, rc.ModifiedFiles)
	}

	stacks, err := DetectStacks(root)
	if err != nil {
		return nil, 0, err
	}
	rc.Stacks = stacks
	rc.Scope.Impact = classifyImpact(rc.ModifiedFiles)

	return rc, clarity, nil
}

// filterSinceLastRun keeps only files modified after the recorded last
// run for the root. Without a record the full set passes through.
func (d *Detector) filterSinceLastRun(ctx context.Context, root string, files []string) []string {
	since, ok, err := d.history.LastRun(ctx, root)
	if err != nil {
		if d.log != nil {
			d.log.Warn("last-run lookup failed, using full modified set", zap.Error(err))
		}
		return files
	}
	if !ok {
		return files
	}

	var kept []string
	for _, f := range files {
		info, err := os.Stat(filepath.Join(root, f))
		if err != nil {
			// Deleted since the diff was taken; still relevant.
			kept = append(kept, f)
			continue
		}
		if info.ModTime().After(since) {
			kept = append(kept, f)
		}
	}
	return kept
}

// confidence combines pattern clarity with the pattern's historical
// accuracy.
func (d *Detector) confidence(ctx context.Context, c *Context, clarity float64) float64 {
	accuracy := neutralAccuracy
	if d.history != nil {
		if acc, ok, err := d.history.Accuracy(ctx, c.Signature()); err == nil && ok {
			accuracy = acc
		}
	}
	return clarityWeight*clarity + historicalWeight*accuracy
}

// frontend file suffixes; everything compiled or server-side counts as
// backend.
var frontendSuffixes = []string{".ts", ".tsx", ".js", ".jsx", ".vue", ".svelte", ".css", ".scss", ".html"}
var backendSuffixes = []string{".go", ".py", ".rs", ".sql", ".java", ".rb"}
var docsSuffixes = []string{".md", ".rst", ".txt"}

// classifyImpact buckets the modified files into a scope impact.
func classifyImpact(files []string) string {
	if len(files) == 0 {
		return "none"
	}

	var frontend, backend, docs, other int
	for _, f := range files {
		switch {
		case hasAnySuffix(f, frontendSuffixes):
			frontend++
		case hasAnySuffix(f, backendSuffixes):
			backend++
		case hasAnySuffix(f, docsSuffixes):
			docs++
		default:
			other++
		}
	}

	switch {
	case frontend > 0 && backend > 0:
		return "full-stack"
	case frontend > 0:
		return "frontend"
	case backend > 0:
		return "backend"
	case docs > 0 && other == 0:
		return "docs"
	default:
		return "config"
	}
}

// mergeImpacts combines per-root impacts into the overall scope.
func mergeImpacts(impacts map[string]bool) string {
	switch {
	case len(impacts) == 0:
		return "none"
	case impacts["full-stack"], impacts["frontend"] && impacts["backend"]:
		return "full-stack"
	case len(impacts) == 1:
		for impact := range impacts {
			return impact
		}
	}

	// Mixed non-code impacts alongside one code impact: the code
	// impact dominates.
	for _, dominant := range []string{"frontend", "backend"} {
		if impacts[dominant] {
			return dominant
		}
	}
	return "config"
}

func hasAnySuffix(path string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

func isNotRepo(err error) bool {
	return errors.Is(err, ErrNotGitRepo)
}

// RecordRun persists the run outcome for the pattern signature and
// stamps the last-run time for each root. Failures are logged, not
// fatal: history is advisory.
func (d *Detector) RecordRun(ctx context.Context, c *Context, roots []string, ok bool) {
	if d.history == nil {
		return
	}
	if err := d.history.RecordOutcome(ctx, c.Signature(), ok); err != nil && d.log != nil {
		d.log.Warn("failed to record pattern outcome", zap.Error(err))
	}
	now := time.Now()
	for _, root := range roots {
		if err := d.history.SetLastRun(ctx, root, now); err != nil && d.log != nil {
			d.log.Warn("failed to record last run", zap.String("root", root), zap.Error(err))
		}
	}
}
