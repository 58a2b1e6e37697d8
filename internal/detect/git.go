package detect

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotGitRepo indicates the root is not inside a git repository.
var ErrNotGitRepo = errors.New("not a git repository")

// gitState is the read-only view of a repository qualgate needs.
type gitState struct {
	branch       string
	modified     []string
	linesChanged int
}

// readGitState opens the repository at root and collects the current
// branch, the modified-file set, and a line-change count.
//
// The modified set is the union of worktree changes (staged and
// unstaged) and the committed diff against baseBranch. A missing base
// branch is tolerated: hotfix workflows routinely run on clones that
// never fetched it.
func readGitState(root, baseBranch string) (*gitState, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotGitRepo, root)
		}
		return nil, fmt.Errorf("opening repository at %s: %w", root, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	branch := "detached"
	if head.Name().IsBranch() {
		branch = head.Name().Short()
	}

	state := &gitState{branch: branch}
	seen := make(map[string]bool)

	// Worktree changes: staged and unstaged, deletions included.
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading worktree status: %w", err)
	}
	for path, st := range status {
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		if !seen[path] {
			seen[path] = true
			state.modified = append(state.modified, path)
		}
	}

	// Committed changes against the base reference, when it exists and
	// we are not on it.
	if branch != baseBranch {
		if err := diffAgainstBase(repo, head.Hash(), baseBranch, seen, state); err != nil {
			return nil, err
		}
	}

	sort.Strings(state.modified)
	return state, nil
}

// diffAgainstBase adds the base..HEAD tree diff to the state.
func diffAgainstBase(repo *git.Repository, headHash plumbing.Hash, baseBranch string, seen map[string]bool, state *gitState) error {
	baseRef, err := repo.Reference(plumbing.NewBranchReferenceName(baseBranch), true)
	if err != nil {
		// No local base branch; try the usual remote-tracking ref.
		baseRef, err = repo.Reference(plumbing.NewRemoteReferenceName("origin", baseBranch), true)
		if err != nil {
			return nil
		}
	}

	baseCommit, err := repo.CommitObject(baseRef.Hash())
	if err != nil {
		return fmt.Errorf("resolving base commit: %w", err)
	}
	headCommit, err := repo.CommitObject(headHash)
	if err != nil {
		return fmt.Errorf("resolving head commit: %w", err)
	}

	baseTree, err := baseCommit.Tree()
	if err != nil {
		return fmt.Errorf("reading base tree: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return fmt.Errorf("reading head tree: %w", err)
	}

	changes, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return fmt.Errorf("diffing against %s: %w", baseBranch, err)
	}

	for _, change := range changes {
		path := change.To.Name
		if path == "" {
			path = change.From.Name // deletion
		}
		if !seen[path] {
			seen[path] = true
			state.modified = append(state.modified, path)
		}

		patch, err := change.Patch()
		if err != nil {
			continue
		}
		for _, stat := range patch.Stats() {
			state.linesChanged += stat.Addition + stat.Deletion
		}
	}

	return nil
}
