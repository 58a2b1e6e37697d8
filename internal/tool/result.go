// Package tool defines the analysis-tool adapter contract, the static
// tool registry, and the wrapper manager that caches one adapter
// instance per tool id for the duration of a run.
package tool

import "time"

// Dimension categorizes what a tool validates.
type Dimension string

const (
	DimErrorDetection  Dimension = "error-detection"
	DimCodeQuality     Dimension = "code-quality"
	DimTestingCoverage Dimension = "testing-coverage"
	DimSecurityAudit   Dimension = "security-audit"
	DimBuildDeps       Dimension = "build-dependencies"
)

// Result is the outcome of one tool execution. It is an opaque value
// after creation; the aggregator keys results by Tool, never by
// position. A Result with an empty Tool field is malformed and is
// excluded from scoring.
type Result struct {
	Tool       string    `json:"tool"`
	Dimension  Dimension `json:"dimension"`
	Success    bool      `json:"success"`
	Critical   bool      `json:"critical"`
	DurationMS int64     `json:"duration_ms"`
	Warnings   []string  `json:"warnings,omitempty"`
	Errors     []string  `json:"errors,omitempty"`

	// TimedOut marks a result synthesized from a per-tool timeout.
	TimedOut bool `json:"timed_out,omitempty"`

	// MemoryMB is the peak resident memory of the tool subprocess,
	// zero when unknown.
	MemoryMB int64 `json:"memory_mb,omitempty"`

	// Details carries tool-specific structured output. Values are not
	// guaranteed to be JSON-encodable; the aggregator handles that.
	Details map[string]any `json:"details,omitempty"`
}

// SetDuration stores the elapsed time in milliseconds.
func (r *Result) SetDuration(d time.Duration) {
	r.DurationMS = d.Milliseconds()
}
