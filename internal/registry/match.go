package registry

import (
	"sort"

	"bde/internal/execute"
)

// Match pairs a known issue with its confidence against one build result.
type Match struct {
	Issue      *KnownIssue `json:"issue"`
	Confidence float64     `json:"confidence"`
	Satisfied  int         `json:"satisfied"`
	Total      int         `json:"total"`
}

// MatchResult evaluates every applicable issue against a build result.
// Confidence is the fraction of signature clauses satisfied; issues with no
// satisfied clause are excluded. Results are ordered confidence descending,
// then build-system-scoped before unscoped, then id ascending, so the top
// match is stable for identical inputs.
func (r *Registry) MatchResult(result *execute.BuildResult) []Match {
	var matches []Match
	for i := range r.Issues {
		issue := &r.Issues[i]
		if !issue.AppliesTo(result.BuildSystem, result.Platform) {
			continue
		}
		satisfied := 0
		for j := range issue.Signature {
			if issue.Signature[j].Satisfied(result) {
				satisfied++
			}
		}
		if satisfied == 0 {
			continue
		}
		matches = append(matches, Match{
			Issue:      issue,
			Confidence: float64(satisfied) / float64(len(issue.Signature)),
			Satisfied:  satisfied,
			Total:      len(issue.Signature),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		si, sj := matches[i].Issue.Scoped(), matches[j].Issue.Scoped()
		if si != sj {
			return si
		}
		return matches[i].Issue.ID < matches[j].Issue.ID
	})
	return matches
}
