package registry

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"bde/internal/errors"
	"bde/internal/logging"
)

// SchemaVersion is the registry document schema this engine reads.
// Documents with a different major version are rejected at load.
const SchemaVersion = 1

// Registry is an immutable snapshot of the known-issue catalog. Matching
// reads it without locking; updates swap the whole snapshot through Store.
type Registry struct {
	SchemaVersion int
	Issues        []KnownIssue

	byID map[string]*KnownIssue
}

// Empty returns a registry with no issues. Diagnosis against it yields
// unresolved results, never errors.
func Empty() *Registry {
	return &Registry{SchemaVersion: SchemaVersion, byID: map[string]*KnownIssue{}}
}

// New builds a registry from in-memory issues, compiling their regex
// clauses. Loading from disk goes through Load; New serves callers that
// inject catalogs directly, deterministic tests in particular.
func New(issues ...KnownIssue) (*Registry, error) {
	reg := &Registry{SchemaVersion: SchemaVersion, Issues: issues}
	for i := range reg.Issues {
		issue := &reg.Issues[i]
		for j := range issue.Signature {
			c := &issue.Signature[j]
			switch c.Type {
			case ClauseStdoutRegex, ClauseStderrRegex:
				re, err := regexp.Compile(c.Pattern)
				if err != nil {
					return nil, errors.New(errors.RegistryLoadError,
						fmt.Sprintf("issue %s: invalid pattern %q", issue.ID, c.Pattern), err)
				}
				c.re = re
			}
		}
	}
	reg.index()
	return reg, nil
}

// Get returns the issue with the given id, or nil.
func (r *Registry) Get(id string) *KnownIssue {
	return r.byID[id]
}

// Len returns the number of catalogued issues.
func (r *Registry) Len() int {
	return len(r.Issues)
}

// index rebuilds the id lookup after Issues is populated.
func (r *Registry) index() {
	r.byID = make(map[string]*KnownIssue, len(r.Issues))
	for i := range r.Issues {
		r.byID[r.Issues[i].ID] = &r.Issues[i]
	}
}

// Store publishes the current registry snapshot. Reload replaces the whole
// catalog atomically; a failed reload leaves the previous snapshot serving.
type Store struct {
	current atomic.Pointer[Registry]
	logger  *logging.Logger
}

// NewStore creates a store serving the given snapshot.
func NewStore(reg *Registry, logger *logging.Logger) *Store {
	s := &Store{logger: logger}
	if reg == nil {
		reg = Empty()
	}
	s.current.Store(reg)
	return s
}

// Current returns the registry snapshot being served.
func (s *Store) Current() *Registry {
	return s.current.Load()
}

// Reload loads the document at path and swaps it in. On load failure the
// previous snapshot stays in place and the error is returned.
func (s *Store) Reload(path string) ([]LoadWarning, error) {
	reg, warnings, err := Load(path, s.logger)
	if err != nil {
		return warnings, err
	}
	s.current.Store(reg)
	s.logger.Info("Issue registry reloaded", map[string]interface{}{
		"path":   path,
		"issues": reg.Len(),
	})
	return warnings, nil
}
