package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/fyrsmithlabs/qualgate/internal/tool"
)

// Format names for FormatResults.
const (
	FormatSummary  = "summary"
	FormatDetailed = "detailed"
	FormatTable    = "table"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle = lipgloss.NewStyle().Bold(true)
)

// FormatResults renders a human-readable view of the results. All
// three formats derive from a single aggregation pass, so the
// PASSED/FAILED text always agrees with the summary counts the JSON
// artifact carries.
func FormatResults(results []tool.Result, format string) (string, error) {
	report := Aggregate(results)

	switch format {
	case FormatSummary:
		return renderSummary(report), nil
	case FormatDetailed:
		return renderDetailed(report), nil
	case FormatTable:
		return renderTable(report), nil
	default:
		return "", fmt.Errorf("unknown format %q (want summary, detailed, or table)", format)
	}
}

func renderSummary(r *Report) string {
	var b strings.Builder

	b.WriteString(verdictLine(r))
	b.WriteString("\n")
	fmt.Fprintf(&b, "score %.0f/100 (grade %s) — %d passed, %d failed of %d\n",
		r.Score, r.Grade, r.Summary.Passed, r.Summary.Failed, r.Summary.Total)
	fmt.Fprintf(&b, "total time %s", (time.Duration(r.Performance.TotalDurationMS) * time.Millisecond).String())
	if r.Performance.MaxMemoryMB > 0 {
		fmt.Fprintf(&b, ", peak memory %d MB", r.Performance.MaxMemoryMB)
	}
	b.WriteString("\n")

	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "  • %s\n", rec)
	}

	return b.String()
}

func renderDetailed(r *Report) string {
	var b strings.Builder
	b.WriteString(renderSummary(r))
	b.WriteString("\n")

	for _, res := range r.Results {
		mark := passStyle.Render("✓")
		if !res.Success {
			mark = failStyle.Render("✗")
		}
		fmt.Fprintf(&b, "%s %s %s (%dms)\n", mark, res.Tool,
			dimStyle.Render("["+string(res.Dimension)+"]"), res.DurationMS)
		for _, e := range res.Errors {
			fmt.Fprintf(&b, "    error: %s\n", e)
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "    warning: %s\n", w)
		}
	}

	for _, e := range r.Errors {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render("note: "+e))
	}

	return b.String()
}

func renderTable(r *Report) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("TOOL", "DIMENSION", "STATUS", "TIME", "ERRORS")

	for _, res := range r.Results {
		status := "pass"
		if !res.Success {
			status = "FAIL"
			if res.TimedOut {
				status = "TIMEOUT"
			}
		}
		t.Row(res.Tool, string(res.Dimension), status,
			fmt.Sprintf("%dms", res.DurationMS), fmt.Sprintf("%d", len(res.Errors)))
	}

	return verdictLine(r) + "\n" + t.Render() + "\n"
}

// verdictLine is the single source of the pass/fail headline; it is
// derived from the same summary the JSON artifact reports.
func verdictLine(r *Report) string {
	if r.Passed() {
		return passStyle.Render("PASSED")
	}
	return failStyle.Render("FAILED")
}
