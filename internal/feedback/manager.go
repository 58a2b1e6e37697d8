package feedback

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qualgate/internal/aggregate"
	"github.com/fyrsmithlabs/qualgate/internal/detect"
	"github.com/fyrsmithlabs/qualgate/internal/tool"
)

// issueLabels are attached to every generated issue URL.
var issueLabels = []string{"quality-gate", "automated"}

// Manager composes the template, store, and issue-URL services into
// the failure feedback pipeline.
type Manager struct {
	store     *Store
	issueRepo string
	log       *zap.Logger
}

// NewManager creates a feedback manager. issueRepo is the "owner/name"
// slug issue URLs target; empty disables URL generation.
func NewManager(store *Store, issueRepo string, log *zap.Logger) *Manager {
	return &Manager{store: store, issueRepo: issueRepo, log: log}
}

// Store exposes the underlying report store for the reports CLI
// surface.
func (m *Manager) Store() *Store {
	return m.store
}

// ReportIssue renders an incident document for the first critical (or
// else first) failing result, persists it with a summary sidecar, and
// indexes it.
func (m *Manager) ReportIssue(execCtx *detect.Context, mode string, report *aggregate.Report) (*Report, error) {
	failing := pickFailing(report.Results)
	if failing == nil {
		return nil, fmt.Errorf("no failing result to report")
	}

	hostname, _ := os.Hostname()
	id := NewReportID()

	data := IncidentData{
		ReportID:        id,
		CreatedAt:       time.Now().UTC(),
		Tool:            failing.Tool,
		Dimension:       string(failing.Dimension),
		Errors:          failing.Errors,
		Branch:          execCtx.Branch,
		Mode:            mode,
		OS:              runtime.GOOS,
		Arch:            runtime.GOARCH,
		Hostname:        hostname,
		CIMarker:        ciMarker(),
		AffectedFiles:   execCtx.ModifiedFiles,
		Recommendations: report.Recommendations,
		Score:           report.Score,
		Grade:           report.Grade,
		Passed:          report.Summary.Passed,
		Failed:          report.Summary.Failed,
	}

	doc, err := RenderIncident(data)
	if err != nil {
		return nil, err
	}

	saved, err := m.store.Save(id, doc, failing.Tool, string(failing.Dimension))
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// IssueURLFor builds the tracker URL for a persisted report's
// document.
func (m *Manager) IssueURLFor(report *Report, doc string) (IssueURL, error) {
	if m.issueRepo == "" {
		return IssueURL{}, fmt.Errorf("no issue repository configured")
	}
	title := fmt.Sprintf("Quality gate failure: %s (%s)", report.Tool, report.Dimension)
	return BuildIssueURL(m.issueRepo, title, doc, issueLabels), nil
}

// pickFailing chooses the result the incident centers on: the first
// critical failure, else the first failure.
func pickFailing(results []tool.Result) *tool.Result {
	var firstFail *tool.Result
	for i := range results {
		res := &results[i]
		if res.Success {
			continue
		}
		if res.Critical {
			return res
		}
		if firstFail == nil {
			firstFail = res
		}
	}
	return firstFail
}

// ciMarker names the CI platform, when one is detectable.
func ciMarker() string {
	switch {
	case os.Getenv("GITHUB_ACTIONS") != "":
		return "github-actions"
	case os.Getenv("GITLAB_CI") != "":
		return "gitlab-ci"
	case os.Getenv("CI") != "":
		return "ci"
	default:
		return ""
	}
}
