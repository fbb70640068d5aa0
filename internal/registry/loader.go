package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"bde/internal/buildsys"
	"bde/internal/errors"
	"bde/internal/logging"
)

// LoadWarning records an entry that was skipped or adjusted during load.
// Warnings are non-fatal: the rest of the document still loads.
type LoadWarning struct {
	IssueID string `json:"issueId,omitempty"`
	Message string `json:"message"`
}

func (w LoadWarning) String() string {
	if w.IssueID == "" {
		return w.Message
	}
	return w.IssueID + ": " + w.Message
}

// document is the on-disk registry shape shared by the YAML and TOML forms.
type document struct {
	SchemaVersion int        `yaml:"schemaVersion" toml:"schemaVersion"`
	Issues        []rawIssue `yaml:"issues" toml:"issues"`
}

type rawIssue struct {
	ID               string            `yaml:"id" toml:"id"`
	Title            string            `yaml:"title" toml:"title"`
	BuildSystems     []string          `yaml:"applicableBuildSystems" toml:"applicableBuildSystems"`
	Platforms        []string          `yaml:"applicablePlatforms" toml:"applicablePlatforms"`
	Severity         string            `yaml:"severity" toml:"severity"`
	MinSchemaVersion int               `yaml:"minSchemaVersion" toml:"minSchemaVersion"`
	Signature        []SignatureClause `yaml:"signature" toml:"signature"`
	Workarounds      []Workaround      `yaml:"workarounds" toml:"workarounds"`
}

// Load reads a registry document (YAML or TOML, by extension) and validates
// every entry. A malformed document or wrong schema version is fatal;
// individually invalid issues are skipped with a warning so one bad entry
// cannot take down the catalog.
func Load(path string, logger *logging.Logger) (*Registry, []LoadWarning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.New(errors.RegistryLoadError, fmt.Sprintf("failed to read registry: %s", path), err)
	}

	var doc document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, nil, errors.New(errors.RegistryLoadError, fmt.Sprintf("malformed YAML registry: %s", path), err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, nil, errors.New(errors.RegistryLoadError, fmt.Sprintf("malformed TOML registry: %s", path), err)
		}
	default:
		return nil, nil, errors.New(errors.RegistryLoadError,
			fmt.Sprintf("unsupported registry format %q (want .yaml, .yml or .toml)", filepath.Ext(path)), nil)
	}

	if doc.SchemaVersion != SchemaVersion {
		return nil, nil, errors.New(errors.RegistryLoadError,
			fmt.Sprintf("registry schema version %d not supported (engine reads version %d)", doc.SchemaVersion, SchemaVersion), nil)
	}

	reg := &Registry{SchemaVersion: doc.SchemaVersion}
	var warnings []LoadWarning
	seen := make(map[string]bool, len(doc.Issues))

	for _, raw := range doc.Issues {
		issue, ws := validateIssue(raw, seen)
		warnings = append(warnings, ws...)
		if issue == nil {
			continue
		}
		seen[issue.ID] = true
		reg.Issues = append(reg.Issues, *issue)
	}
	reg.index()

	for _, w := range warnings {
		logger.Warn("Registry entry skipped or adjusted", map[string]interface{}{
			"path":    path,
			"issueId": w.IssueID,
			"reason":  w.Message,
		})
	}
	logger.Debug("Issue registry loaded", map[string]interface{}{
		"path":     path,
		"issues":   reg.Len(),
		"warnings": len(warnings),
	})
	return reg, warnings, nil
}

// validateIssue checks one raw entry. A nil return means the entry is
// skipped; the warnings explain every skip or adjustment.
func validateIssue(raw rawIssue, seen map[string]bool) (*KnownIssue, []LoadWarning) {
	var warnings []LoadWarning
	skip := func(msg string) (*KnownIssue, []LoadWarning) {
		return nil, append(warnings, LoadWarning{IssueID: raw.ID, Message: msg})
	}

	if raw.ID == "" {
		return skip("issue without id skipped")
	}
	if seen[raw.ID] {
		return skip("duplicate issue id skipped")
	}
	if raw.MinSchemaVersion > SchemaVersion {
		return skip(fmt.Sprintf("entry requires schema version %d; skipped", raw.MinSchemaVersion))
	}
	if len(raw.Signature) == 0 {
		return skip("issue without signature clauses skipped")
	}

	issue := &KnownIssue{
		ID:        raw.ID,
		Title:     raw.Title,
		Platforms: raw.Platforms,
		Severity:  Severity(raw.Severity),
	}
	switch issue.Severity {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
	case "":
		issue.Severity = SeverityWarning
	default:
		warnings = append(warnings, LoadWarning{IssueID: raw.ID,
			Message: fmt.Sprintf("unknown severity %q, defaulting to warning", raw.Severity)})
		issue.Severity = SeverityWarning
	}

	for _, name := range raw.BuildSystems {
		kind, err := buildsys.ParseKind(name)
		if err != nil {
			warnings = append(warnings, LoadWarning{IssueID: raw.ID,
				Message: fmt.Sprintf("unknown build system %q dropped from applicability", name)})
			continue
		}
		issue.BuildSystems = append(issue.BuildSystems, kind)
	}
	if len(raw.BuildSystems) > 0 && len(issue.BuildSystems) == 0 {
		return skip("no recognized build system in applicability list; issue skipped")
	}

	for _, clause := range raw.Signature {
		switch clause.Type {
		case ClauseStdoutRegex, ClauseStderrRegex:
			re, err := regexp.Compile(clause.Pattern)
			if err != nil {
				return skip(fmt.Sprintf("invalid pattern %q: %v", clause.Pattern, err))
			}
			clause.re = re
		case ClauseExitCodeRange:
			if clause.Min > clause.Max {
				return skip(fmt.Sprintf("empty exit code range [%d, %d]", clause.Min, clause.Max))
			}
		case ClausePlatform:
			if len(clause.Platforms) == 0 {
				return skip("platform clause without platforms")
			}
		default:
			return skip(fmt.Sprintf("unknown clause type %q", clause.Type))
		}
		issue.Signature = append(issue.Signature, clause)
	}

	for _, w := range raw.Workarounds {
		switch w.Action {
		case ActionRunCommand, ActionSetEnvVar, ActionPatchFile, ActionInstallPackage, ActionManual:
		default:
			warnings = append(warnings, LoadWarning{IssueID: raw.ID,
				Message: fmt.Sprintf("workaround with unknown action %q dropped", w.Action)})
			continue
		}
		if w.Automatic && !automaticAllowed(w.Action) {
			warnings = append(warnings, LoadWarning{IssueID: raw.ID,
				Message: fmt.Sprintf("action %q cannot be automatic; forced to manual confirmation", w.Action)})
			w.Automatic = false
		}
		issue.Workarounds = append(issue.Workarounds, w)
	}

	return issue, warnings
}
