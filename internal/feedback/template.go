// Package feedback builds, persists, and reports incident documents
// for failed runs: a rendered report per incident, a JSON summary
// sidecar, an append/prune index, retention-based cleanup, and
// issue-tracker URL generation under a length budget.
package feedback

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// IncidentData is the typed variable table for the incident template.
// Rendering fails on any placeholder the struct does not provide;
// unknown placeholders never pass through silently.
type IncidentData struct {
	ReportID  string
	CreatedAt time.Time

	// Failing tool detail.
	Tool      string
	Dimension string
	Errors    []string

	// Execution parameters.
	Branch string
	Mode   string

	// Environment metadata.
	OS       string
	Arch     string
	Hostname string
	CIMarker string

	AffectedFiles   []string
	Recommendations []string

	Score  float64
	Grade  string
	Passed int
	Failed int
}

const incidentTemplate = `# Quality gate failure: {{.Tool}}

- Report ID: {{.ReportID}}
- Created: {{.CreatedAt.Format "2006-01-02T15:04:05Z07:00"}}
- Tool: {{.Tool}} ({{.Dimension}})
- Branch: {{.Branch}}
- Mode: {{.Mode}}
- Environment: {{.OS}}/{{.Arch}} on {{.Hostname}}{{if .CIMarker}} ({{.CIMarker}}){{end}}

## Outcome

Score {{printf "%.0f" .Score}}/100, grade {{.Grade}}: {{.Passed}} passed, {{.Failed}} failed.

## Errors
{{range .Errors}}
- {{.}}
{{- else}}
- (no error output captured)
{{- end}}

## Affected files
{{range .AffectedFiles}}
- {{.}}
{{- else}}
- (whole workspace)
{{- end}}

## Recommendations
{{range .Recommendations}}
- {{.}}
{{- end}}
`

// incidentTmpl is parsed once; missing keys are a render-time error by
// construction.
var incidentTmpl = template.Must(
	template.New("incident").Option("missingkey=error").Parse(incidentTemplate))

// RenderIncident renders the incident document for the data.
func RenderIncident(data IncidentData) (string, error) {
	var b strings.Builder
	if err := incidentTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering incident template: %w", err)
	}
	return b.String(), nil
}
