package registry

import (
	"os"
	"path/filepath"
	"testing"

	"bde/internal/errors"
	"bde/internal/logging"
)

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "bde-registry-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

const validYAML = `
schemaVersion: 1
issues:
  - id: missing-zlib-header
    title: zlib development headers missing
    applicableBuildSystems: [cmake]
    severity: error
    signature:
      - type: stderr-regex
        pattern: 'zlib\.h: No such file'
      - type: exit-code-range
        min: 1
        max: 2
    workarounds:
      - description: Install the zlib development package
        action: install-package
        package: zlib1g-dev
`

func TestLoadYAML(t *testing.T) {
	path := writeDoc(t, "issues.yaml", validYAML)
	reg, warnings, err := Load(path, logging.Discard())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	issue := reg.Get("missing-zlib-header")
	if issue == nil {
		t.Fatal("issue not loaded")
	}
	if len(issue.Signature) != 2 {
		t.Errorf("expected 2 clauses, got %d", len(issue.Signature))
	}
	if issue.Severity != SeverityError {
		t.Errorf("expected severity error, got %s", issue.Severity)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeDoc(t, "issues.toml", `
schemaVersion = 1

[[issues]]
id = "linker-oom"
title = "Linker killed by the OOM killer"
severity = "error"

[[issues.signature]]
type = "stderr-regex"
pattern = "collect2.*signal 9"

[[issues.workarounds]]
description = "Reduce link parallelism"
action = "set-env"
envName = "LDFLAGS"
envValue = "-Wl,--no-keep-memory"
automatic = true
`)
	reg, warnings, err := Load(path, logging.Discard())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	issue := reg.Get("linker-oom")
	if issue == nil {
		t.Fatal("issue not loaded")
	}
	if issue.FirstAutomatic("") == nil {
		t.Error("set-env workaround should stay automatic")
	}
}

func TestLoadWrongSchemaVersionIsFatal(t *testing.T) {
	path := writeDoc(t, "issues.yaml", `
schemaVersion: 2
issues: []
`)
	_, _, err := Load(path, logging.Discard())
	if err == nil {
		t.Fatal("expected schema version error")
	}
	if !errors.IsCode(err, errors.RegistryLoadError) {
		t.Errorf("expected RegistryLoadError, got %v", err)
	}
}

func TestLoadMalformedDocumentIsFatal(t *testing.T) {
	path := writeDoc(t, "issues.yaml", "schemaVersion: [broken\n")
	if _, _, err := Load(path, logging.Discard()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadSkipsInvalidEntries(t *testing.T) {
	path := writeDoc(t, "issues.yaml", `
schemaVersion: 1
issues:
  - id: bad-regex
    signature:
      - type: stderr-regex
        pattern: '(['
  - id: no-signature
    title: nothing to match
  - id: future-entry
    minSchemaVersion: 99
    signature:
      - type: exit-code-range
        min: 1
        max: 1
  - id: ok
    signature:
      - type: exit-code-range
        min: 1
        max: 255
  - id: ok
    signature:
      - type: exit-code-range
        min: 2
        max: 2
`)
	reg, warnings, err := Load(path, logging.Discard())
	if err != nil {
		t.Fatalf("one bad entry must not fail the load: %v", err)
	}
	if reg.Len() != 1 {
		t.Errorf("expected exactly the valid entry, got %d", reg.Len())
	}
	if reg.Get("ok") == nil {
		t.Error("valid entry missing")
	}
	if len(warnings) != 4 {
		t.Errorf("expected 4 warnings (bad regex, no signature, future schema, duplicate id), got %v", warnings)
	}
}

func TestLoadForcesDestructiveActionsManual(t *testing.T) {
	path := writeDoc(t, "issues.yaml", `
schemaVersion: 1
issues:
  - id: needs-package
    signature:
      - type: exit-code-range
        min: 1
        max: 1
    workarounds:
      - description: Install something
        action: install-package
        package: libfoo-dev
        automatic: true
`)
	reg, warnings, err := Load(path, logging.Discard())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	issue := reg.Get("needs-package")
	if issue == nil {
		t.Fatal("issue not loaded")
	}
	if issue.Workarounds[0].Automatic {
		t.Error("install-package must never be automatic")
	}
	if len(warnings) != 1 {
		t.Errorf("expected one adjustment warning, got %v", warnings)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeDoc(t, "issues.json", `{}`)
	if _, _, err := Load(path, logging.Discard()); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestStoreReloadSwapsAtomically(t *testing.T) {
	store := NewStore(Empty(), logging.Discard())
	if store.Current().Len() != 0 {
		t.Fatal("expected empty initial catalog")
	}

	path := writeDoc(t, "issues.yaml", validYAML)
	if _, err := store.Reload(path); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if store.Current().Len() != 1 {
		t.Errorf("expected 1 issue after reload, got %d", store.Current().Len())
	}

	// A failed reload keeps the previous catalog serving.
	if _, err := store.Reload(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected reload failure for missing file")
	}
	if store.Current().Len() != 1 {
		t.Error("failed reload must not replace the catalog")
	}
}
