package detect

import (
	"regexp"
	"strings"
)

// Branch naming patterns, checked in order. The first match wins.
var (
	featurePattern = regexp.MustCompile(`^feature/([A-Za-z]+-\d+|\d+)?-?(.*)$`)
	bugfixPattern  = regexp.MustCompile(`^(bugfix|fix)/(.+)$`)
	hotfixPattern  = regexp.MustCompile(`^hotfix/(.+)$`)
	releasePattern = regexp.MustCompile(`^release/v?([\w.]+)$`)
)

// integrationBranches are long-lived branches that carry merged work.
var integrationBranches = map[string]bool{
	"main":        true,
	"master":      true,
	"develop":     true,
	"integration": true,
	"staging":     true,
}

// classifyBranch maps a branch name to a kind, an optional task or
// release identifier, and a pattern clarity in [0,1]. Unmatched names
// fall back to BranchUnknown with low clarity.
func classifyBranch(name string) (BranchKind, string, float64) {
	if integrationBranches[name] {
		return BranchIntegration, "", 1.0
	}

	if m := featurePattern.FindStringSubmatch(name); m != nil {
		if m[1] != "" {
			return BranchFeature, m[1], 1.0
		}
		// feature/ prefix without a ticket id still classifies, with
		// less to go on.
		return BranchFeature, "", 0.8
	}

	if m := bugfixPattern.FindStringSubmatch(name); m != nil {
		return BranchBugfix, "", 0.9
	}

	if m := hotfixPattern.FindStringSubmatch(name); m != nil {
		return BranchHotfix, "", 0.9
	}

	if m := releasePattern.FindStringSubmatch(name); m != nil {
		return BranchRelease, m[1], 1.0
	}

	// Slash-prefixed names we do not recognize still say more than a
	// bare word.
	if strings.Contains(name, "/") {
		return BranchUnknown, "", 0.5
	}

	return BranchUnknown, "", 0.3
}
