package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/qualgate/internal/tool"
)

func TestAggregateCountsAndPerformance(t *testing.T) {
	report := Aggregate([]tool.Result{
		{Tool: "lint", Dimension: tool.DimCodeQuality, Success: true, DurationMS: 30000, MemoryMB: 256},
		{Tool: "test", Dimension: tool.DimTestingCoverage, Success: true, DurationMS: 12000, MemoryMB: 128},
	})

	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 2, report.Summary.Passed)
	assert.Equal(t, 0, report.Summary.Failed)
	assert.Equal(t, int64(42000), report.Performance.TotalDurationMS)
	assert.Equal(t, int64(256), report.Performance.MaxMemoryMB)
	assert.True(t, report.Passed())
	assert.Equal(t, float64(100), report.Score)
	assert.Equal(t, "A", report.Grade)
}

func TestAggregateExcludesMalformedResults(t *testing.T) {
	report := Aggregate([]tool.Result{
		{Tool: "lint", Success: true},
		{Success: false}, // no tool field
		{Tool: "test", Success: true},
	})

	assert.Equal(t, 2, report.Summary.Total)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "malformed result at index 1")
	assert.Len(t, report.Results, 2)
}

func TestCriticalFailureLowersScoreBeyondPassRatio(t *testing.T) {
	base := []tool.Result{
		{Tool: "lint", Success: true},
		{Tool: "format", Success: true},
		{Tool: "test", Success: true},
		{Tool: "build", Success: false},
	}
	noncritical := Aggregate(base)

	base[3].Critical = true
	critical := Aggregate(base)

	assert.Less(t, critical.Score, noncritical.Score,
		"flipping a failure to critical must strictly decrease the score")
	assert.InDelta(t, 75.0, noncritical.Score, 0.001)
	assert.InDelta(t, 45.0, critical.Score, 0.001)
	assert.Equal(t, "F", critical.Grade)
}

func TestScoreClampsAtZero(t *testing.T) {
	report := Aggregate([]tool.Result{
		{Tool: "type-check", Success: false, Critical: true},
		{Tool: "test", Success: false, Critical: true},
		{Tool: "build", Success: false, Critical: true},
	})
	assert.Equal(t, float64(0), report.Score)
	assert.Equal(t, "F", report.Grade)
}

func TestGradeBands(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{95, "A"},
		{90, "A"},
		{89.9, "B"},
		{80, "B"},
		{75, "C"},
		{65, "D"},
		{59.9, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, grade(tc.score), "score %v", tc.score)
	}
}

func TestRecommendationsOrderCriticalFirst(t *testing.T) {
	report := Aggregate([]tool.Result{
		{Tool: "lint", Dimension: tool.DimCodeQuality, Success: false},
		{Tool: "test", Dimension: tool.DimTestingCoverage, Success: false, Critical: true,
			Errors: []string{"3 tests failed"}},
	})

	require.NotEmpty(t, report.Recommendations)
	assert.Equal(t, "critical: test failed: 3 tests failed", report.Recommendations[0])
	assert.Contains(t, report.Recommendations[1], "lint findings")
}

func TestRecommendationsDeduplicateDimensions(t *testing.T) {
	report := Aggregate([]tool.Result{
		{Tool: "lint", Dimension: tool.DimCodeQuality, Success: false},
		{Tool: "format", Dimension: tool.DimCodeQuality, Success: false},
	})
	assert.Len(t, report.Recommendations, 1)
}

func TestEmptyResultSetScoresZero(t *testing.T) {
	report := Aggregate(nil)
	assert.Equal(t, float64(0), report.Score)
	assert.Equal(t, 0, report.Summary.Total)
	assert.True(t, report.Passed())
}
