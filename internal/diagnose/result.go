// Package diagnose drives the bounded analyze-apply-rebuild repair loop
// over captured build failures.
package diagnose

import (
	"time"

	"bde/internal/execute"
	"bde/internal/registry"
)

// Outcome records what happened to one applied workaround.
type Outcome string

const (
	// OutcomeApplied means the action ran but the rebuild still failed
	OutcomeApplied Outcome = "applied"
	// OutcomeFixed means the rebuild after this action succeeded
	OutcomeFixed Outcome = "fixed"
	// OutcomeFailed means the action itself could not be applied
	OutcomeFailed Outcome = "failed"
)

// AppliedWorkaround is one remediation attempt in a diagnosis session.
// It is recorded before the rebuild runs, so an interrupted session still
// shows what was changed.
type AppliedWorkaround struct {
	IssueID     string              `json:"issueId"`
	Description string              `json:"description"`
	Action      registry.ActionType `json:"action"`
	Outcome     Outcome             `json:"outcome"`
	Error       string              `json:"error,omitempty"`
	// BackupPath is set for patch-file actions so the change can be undone.
	BackupPath string    `json:"backupPath,omitempty"`
	AppliedAt  time.Time `json:"appliedAt"`
}

// Attempt is one build invocation observed during the session: the initial
// failure plus every rebuild.
type Attempt struct {
	Number  int                  `json:"number"`
	Result  *execute.BuildResult `json:"result"`
	Matches []registry.Match     `json:"matches,omitempty"`
}

// DiagnosisResult is the full record of one diagnosis session.
type DiagnosisResult struct {
	SessionID string `json:"sessionId"`
	Root      string `json:"root,omitempty"`
	// Fixed means a rebuild succeeded during the session.
	Fixed bool `json:"fixed"`
	// Unresolved means the loop terminated with the build still failing:
	// no match above threshold, every candidate already tried, or the
	// attempt bound was reached.
	Unresolved bool   `json:"unresolved"`
	Reason     string `json:"reason,omitempty"`

	// Matches holds the ranked matches for the most recent failure, kept
	// even when nothing was applied so callers can present suggestions.
	Matches []registry.Match    `json:"matches,omitempty"`
	Applied []AppliedWorkaround `json:"applied,omitempty"`
	// Suggested holds non-automatic workarounds from the top match that
	// the engine will not apply on its own.
	Suggested []registry.Workaround `json:"suggested,omitempty"`

	Attempts []Attempt `json:"attempts"`
}
