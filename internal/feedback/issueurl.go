package feedback

import (
	"fmt"
	"net/url"
	"strings"
)

// maxIssueURLLen is the issue tracker's practical URL length ceiling.
const maxIssueURLLen = 8000

// safeBodyLen is where the truncation rung cuts the body; chosen so a
// truncated body plus title, labels, and query escaping stays under
// the ceiling for realistic titles.
const safeBodyLen = 1800

// truncationNotice is appended to a body cut by the truncation rung.
const truncationNotice = "\n\n---\n*Body truncated to fit the issue URL length limit. " +
	"The full report is in the local feedback store.*"

// minimalBody is the fixed template of the minimal rung.
const minimalBody = "A quality-gate run failed. The full incident report exceeds the " +
	"issue URL length limit; see the local feedback store for details."

// IssueURL is the outcome of the progressive truncation ladder.
type IssueURL struct {
	URL string `json:"url"`

	// Method names the ladder rung that produced the URL: full,
	// truncated, minimal, title-only, or fallback.
	Method string `json:"method"`

	// Truncated is true for every rung after the first.
	Truncated bool `json:"truncated"`
}

// BuildIssueURL fits an issue for repo ("owner/name") inside the URL
// length ceiling, degrading body fidelity one rung at a time: the full
// body, a truncated body with notice, a minimal fixed template, then
// title and labels with no body. If even that overflows it falls back
// to the bare new-issue endpoint.
func BuildIssueURL(repo, title, body string, labels []string) IssueURL {
	base := fmt.Sprintf("https://github.com/%s/issues/new", repo)

	attempts := []struct {
		method string
		body   string
	}{
		{"full", body},
		{"truncated", truncateBody(body)},
		{"minimal", minimalBody},
		{"title-only", ""},
	}

	for i, attempt := range attempts {
		u := composeIssueURL(base, title, attempt.body, labels)
		if len(u) <= maxIssueURLLen {
			return IssueURL{URL: u, Method: attempt.method, Truncated: i > 0}
		}
	}

	return IssueURL{URL: base, Method: "fallback", Truncated: true}
}

func composeIssueURL(base, title, body string, labels []string) string {
	q := url.Values{}
	if title != "" {
		q.Set("title", title)
	}
	if body != "" {
		q.Set("body", body)
	}
	if len(labels) > 0 {
		q.Set("labels", strings.Join(labels, ","))
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

// truncateBody cuts the body at a rune boundary and appends the
// truncation notice.
func truncateBody(body string) string {
	runes := []rune(body)
	if len(runes) <= safeBodyLen {
		return body
	}
	return string(runes[:safeBodyLen]) + truncationNotice
}
