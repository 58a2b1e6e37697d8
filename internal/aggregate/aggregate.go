// Package aggregate turns raw tool results into a scored report with
// machine and human renderings. Aggregation is recomputed fresh on
// every call; nothing here is shared mutable state.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/fyrsmithlabs/qualgate/internal/tool"
)

// criticalPenalty is subtracted from the score for every critical
// failure. Sized so one critical failure drops the grade by more than
// one letter band even when everything else passed.
const criticalPenalty = 30

// Summary counts pass/fail over well-formed results.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Performance rolls up duration and memory across results.
type Performance struct {
	// TotalDurationMS is the sum of all result durations.
	TotalDurationMS int64 `json:"total_duration_ms"`

	// MaxMemoryMB is the largest reported peak memory; results without
	// a memory figure are ignored.
	MaxMemoryMB int64 `json:"max_memory_mb"`
}

// Report is the aggregated view over one run's results.
type Report struct {
	Timestamp       time.Time     `json:"timestamp"`
	Summary         Summary       `json:"summary"`
	Score           float64       `json:"score"`
	Grade           string        `json:"grade"`
	Recommendations []string      `json:"recommendations"`
	Performance     Performance   `json:"performance"`
	Results         []tool.Result `json:"results"`
	Errors          []string      `json:"errors,omitempty"`
}

// Passed reports whether the run gates green.
func (r *Report) Passed() bool {
	return r.Summary.Failed == 0
}

// Aggregate computes the report for a result set. Malformed entries
// (no tool field) are excluded from scoring and recorded in Errors.
func Aggregate(results []tool.Result) *Report {
	report := &Report{Timestamp: time.Now().UTC()}

	var valid []tool.Result
	for i, res := range results {
		if res.Tool == "" {
			report.Errors = append(report.Errors,
				fmt.Sprintf("malformed result at index %d: missing tool field", i))
			continue
		}
		valid = append(valid, res)
	}
	report.Results = valid

	criticalFailures := 0
	for _, res := range valid {
		report.Summary.Total++
		if res.Success {
			report.Summary.Passed++
		} else {
			report.Summary.Failed++
			if res.Critical {
				criticalFailures++
			}
		}
		report.Performance.TotalDurationMS += res.DurationMS
		if res.MemoryMB > report.Performance.MaxMemoryMB {
			report.Performance.MaxMemoryMB = res.MemoryMB
		}
	}

	report.Score = score(report.Summary, criticalFailures)
	report.Grade = grade(report.Score)
	report.Recommendations = recommendations(valid)

	return report
}

// score is the pass ratio on a 0..100 scale, penalized per critical
// failure and clamped.
func score(s Summary, criticalFailures int) float64 {
	if s.Total == 0 {
		return 0
	}
	v := float64(s.Passed) / float64(s.Total) * 100
	v -= float64(criticalFailures) * criticalPenalty
	if v < 0 {
		return 0
	}
	return v
}

// grade maps a score into fixed letter bands.
func grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// dimensionAdvice maps a failing dimension to remediation advice.
var dimensionAdvice = map[tool.Dimension]string{
	tool.DimErrorDetection:  "fix the reported type and compile errors before anything else",
	tool.DimCodeQuality:     "run the formatter and address lint findings",
	tool.DimTestingCoverage: "repair the failing tests; do not skip or mute them",
	tool.DimSecurityAudit:   "review and upgrade the flagged vulnerable dependencies",
	tool.DimBuildDeps:       "resolve the build breakage; check dependency versions first",
}

// recommendations orders critical-failure advice first, then
// dimension-specific advice for remaining failures.
func recommendations(results []tool.Result) []string {
	var recs []string
	seenDim := make(map[tool.Dimension]bool)

	// Critical failures lead, in result order.
	for _, res := range results {
		if res.Success || !res.Critical {
			continue
		}
		detail := ""
		if len(res.Errors) > 0 {
			detail = ": " + res.Errors[0]
		}
		recs = append(recs, fmt.Sprintf("critical: %s failed%s", res.Tool, detail))
		seenDim[res.Dimension] = true
	}

	// Dimension advice for non-critical failures, deduplicated, in a
	// stable order.
	var dims []string
	dimFor := make(map[string]tool.Dimension)
	for _, res := range results {
		if res.Success || seenDim[res.Dimension] {
			continue
		}
		seenDim[res.Dimension] = true
		dims = append(dims, string(res.Dimension))
		dimFor[string(res.Dimension)] = res.Dimension
	}
	sort.Strings(dims)
	for _, d := range dims {
		if advice, ok := dimensionAdvice[dimFor[d]]; ok {
			recs = append(recs, fmt.Sprintf("%s: %s", d, advice))
		}
	}

	return recs
}
