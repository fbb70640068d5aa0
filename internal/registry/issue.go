// Package registry holds the declarative catalog of known build failures
// and matches captured build results against it.
package registry

import (
	"regexp"

	"bde/internal/buildsys"
	"bde/internal/execute"
)

// Severity grades a known issue.
type Severity string

const (
	// SeverityInfo for informational issues
	SeverityInfo Severity = "info"
	// SeverityWarning for issues that degrade but do not break a build
	SeverityWarning Severity = "warning"
	// SeverityError for issues that fail a build
	SeverityError Severity = "error"
	// SeverityCritical for issues that corrupt state beyond the build
	SeverityCritical Severity = "critical"
)

// ClauseType identifies a signature clause kind.
type ClauseType string

const (
	// ClauseStdoutRegex matches a pattern against captured stdout
	ClauseStdoutRegex ClauseType = "stdout-regex"
	// ClauseStderrRegex matches a pattern against captured stderr
	ClauseStderrRegex ClauseType = "stderr-regex"
	// ClauseExitCodeRange matches the exit code against [min, max]
	ClauseExitCodeRange ClauseType = "exit-code-range"
	// ClausePlatform matches the host platform of the build result
	ClausePlatform ClauseType = "platform"
)

// SignatureClause is one matchable condition of an issue signature.
type SignatureClause struct {
	Type      ClauseType `json:"type" yaml:"type" toml:"type"`
	Pattern   string     `json:"pattern,omitempty" yaml:"pattern" toml:"pattern"`
	Min       int        `json:"min,omitempty" yaml:"min" toml:"min"`
	Max       int        `json:"max,omitempty" yaml:"max" toml:"max"`
	Platforms []string   `json:"platforms,omitempty" yaml:"platforms" toml:"platforms"`

	re *regexp.Regexp // compiled at load
}

// Satisfied reports whether the clause holds for a build result.
func (c *SignatureClause) Satisfied(result *execute.BuildResult) bool {
	switch c.Type {
	case ClauseStdoutRegex:
		return c.re != nil && c.re.MatchString(result.Stdout)
	case ClauseStderrRegex:
		return c.re != nil && c.re.MatchString(result.Stderr)
	case ClauseExitCodeRange:
		return result.ExitCode >= c.Min && result.ExitCode <= c.Max
	case ClausePlatform:
		for _, p := range c.Platforms {
			if p == result.Platform {
				return true
			}
		}
		return false
	}
	return false
}

// ActionType tags a workaround's remediation action.
type ActionType string

const (
	// ActionRunCommand runs a shell command in the project root
	ActionRunCommand ActionType = "run-command"
	// ActionSetEnvVar sets an environment variable for the rebuild
	ActionSetEnvVar ActionType = "set-env"
	// ActionPatchFile applies a recorded, reversible file patch
	ActionPatchFile ActionType = "patch-file"
	// ActionInstallPackage suggests installing a system package
	ActionInstallPackage ActionType = "install-package"
	// ActionManual is a human instruction with no machine action
	ActionManual ActionType = "manual"
)

// automaticAllowed reports whether an action may carry automatic=true:
// only actions with no destructive side effect beyond a recorded,
// reversible file patch or an environment variable.
func automaticAllowed(a ActionType) bool {
	switch a {
	case ActionRunCommand, ActionSetEnvVar, ActionPatchFile:
		return true
	}
	return false
}

// Workaround is one remediation action attached to a known issue.
type Workaround struct {
	Description string     `json:"description" yaml:"description" toml:"description"`
	Action      ActionType `json:"action" yaml:"action" toml:"action"`

	// run-command
	Command string   `json:"command,omitempty" yaml:"command" toml:"command"`
	Args    []string `json:"args,omitempty" yaml:"args" toml:"args"`
	// set-env
	EnvName  string `json:"envName,omitempty" yaml:"envName" toml:"envName"`
	EnvValue string `json:"envValue,omitempty" yaml:"envValue" toml:"envValue"`
	// patch-file (literal find/replace on one file under the project root)
	File    string `json:"file,omitempty" yaml:"file" toml:"file"`
	Find    string `json:"find,omitempty" yaml:"find" toml:"find"`
	Replace string `json:"replace,omitempty" yaml:"replace" toml:"replace"`
	// install-package
	Package string `json:"package,omitempty" yaml:"package" toml:"package"`

	// Platforms restricts the workaround to the listed host platforms.
	// Empty means any.
	Platforms []string `json:"platforms,omitempty" yaml:"platforms" toml:"platforms"`

	Automatic bool `json:"automatic,omitempty" yaml:"automatic" toml:"automatic"`
}

// AppliesTo reports whether the workaround is applicable on the given
// platform. An empty platform matches everything.
func (w *Workaround) AppliesTo(platform string) bool {
	if len(w.Platforms) == 0 || platform == "" {
		return true
	}
	for _, p := range w.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// KnownIssue is one catalogued failure pattern.
type KnownIssue struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	BuildSystems []buildsys.Kind   `json:"applicableBuildSystems,omitempty"`
	Platforms    []string          `json:"applicablePlatforms,omitempty"`
	Severity     Severity          `json:"severity"`
	Signature    []SignatureClause `json:"signature"`
	Workarounds  []Workaround      `json:"workarounds,omitempty"`
}

// AppliesTo reports whether the issue is applicable to the given build
// system and platform. Empty sets mean "any".
func (i *KnownIssue) AppliesTo(kind buildsys.Kind, platform string) bool {
	if len(i.BuildSystems) > 0 {
		found := false
		for _, k := range i.BuildSystems {
			if k == kind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(i.Platforms) > 0 && platform != "" {
		found := false
		for _, p := range i.Platforms {
			if p == platform {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Scoped reports whether the issue restricts its applicable build systems.
// Scoped issues win confidence ties over unscoped ones.
func (i *KnownIssue) Scoped() bool {
	return len(i.BuildSystems) > 0
}

// FirstAutomatic returns the first workaround marked safe for automatic
// application on the given platform, or nil.
func (i *KnownIssue) FirstAutomatic(platform string) *Workaround {
	for j := range i.Workarounds {
		if i.Workarounds[j].Automatic && i.Workarounds[j].AppliesTo(platform) {
			return &i.Workarounds[j]
		}
	}
	return nil
}
