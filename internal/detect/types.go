// Package detect derives the execution context for a qualgate run:
// branch classification, modified files, detected technology stacks,
// change scope, and a confidence score backed by historical pattern
// accuracy.
package detect

// BranchKind classifies the current branch by naming pattern.
type BranchKind string

const (
	BranchFeature     BranchKind = "feature"
	BranchBugfix      BranchKind = "bugfix"
	BranchHotfix      BranchKind = "hotfix"
	BranchRelease     BranchKind = "release"
	BranchIntegration BranchKind = "integration"
	BranchUnknown     BranchKind = "unknown"
)

// Stack describes one detected technology stack in a root.
type Stack struct {
	Language         string   `json:"language"`
	Framework        string   `json:"framework,omitempty"`
	Version          string   `json:"version,omitempty"`
	RecommendedTools []string `json:"recommended_tools"`
}

// Scope summarizes how broad the change set is.
type Scope struct {
	// Impact is one of frontend, backend, full-stack, docs, config,
	// or none.
	Impact string `json:"impact"`

	// LinesChanged is the additions plus deletions against the base
	// reference.
	LinesChanged int `json:"lines_changed"`
}

// Context is the execution context for a run. It is built once by the
// Detector and never mutated afterwards.
type Context struct {
	Branch        string     `json:"branch"`
	Kind          BranchKind `json:"kind"`
	TaskID        string     `json:"task_id,omitempty"`
	ModifiedFiles []string   `json:"modified_files"`
	Stacks        []Stack    `json:"stacks"`
	Scope         Scope      `json:"scope"`
	Confidence    float64    `json:"confidence"`
}

// Signature identifies the branch pattern for the history table.
func (c *Context) Signature() string {
	return string(c.Kind) + ":" + c.Scope.Impact
}

// HasLanguage reports whether any detected stack uses the language.
func (c *Context) HasLanguage(lang string) bool {
	for _, s := range c.Stacks {
		if s.Language == lang {
			return true
		}
	}
	return false
}
