package registry

import (
	"regexp"
	"testing"

	"bde/internal/buildsys"
	"bde/internal/execute"
)

func clause(typ ClauseType, pattern string) SignatureClause {
	c := SignatureClause{Type: typ, Pattern: pattern}
	if pattern != "" {
		c.re = regexp.MustCompile(pattern)
	}
	return c
}

func exitClause(min, max int) SignatureClause {
	return SignatureClause{Type: ClauseExitCodeRange, Min: min, Max: max}
}

func testRegistry(issues ...KnownIssue) *Registry {
	r := &Registry{SchemaVersion: SchemaVersion, Issues: issues}
	r.index()
	return r
}

func failedBuild() *execute.BuildResult {
	return &execute.BuildResult{
		Command:     "make",
		ExitCode:    2,
		Stderr:      "fatal error: zlib.h: No such file or directory",
		BuildSystem: buildsys.KindCMake,
		Platform:    "linux",
	}
}

func TestMatchFullySatisfiedSignature(t *testing.T) {
	reg := testRegistry(KnownIssue{
		ID:           "missing-zlib-header",
		Title:        "zlib development headers missing",
		BuildSystems: []buildsys.Kind{buildsys.KindCMake},
		Signature: []SignatureClause{
			clause(ClauseStderrRegex, `zlib\.h: No such file`),
			exitClause(1, 2),
		},
		Workarounds: []Workaround{
			{Description: "Install zlib development package", Action: ActionInstallPackage, Package: "zlib1g-dev"},
		},
	})

	matches := reg.MatchResult(failedBuild())
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Confidence != 1.0 {
		t.Errorf("both clauses satisfied: expected confidence 1.0, got %v", m.Confidence)
	}
	if m.Issue.FirstAutomatic("") != nil {
		t.Error("install-package workaround must not be automatic")
	}
}

func TestFirstAutomaticHonorsWorkaroundPlatforms(t *testing.T) {
	issue := KnownIssue{
		ID: "platform-scoped-fix",
		Workarounds: []Workaround{
			{
				Description: "Windows-only registry tweak",
				Action:      ActionSetEnvVar,
				EnvName:     "FIX",
				EnvValue:    "1",
				Platforms:   []string{"windows"},
				Automatic:   true,
			},
			{
				Description: "Portable fallback",
				Action:      ActionSetEnvVar,
				EnvName:     "FIX",
				EnvValue:    "2",
				Automatic:   true,
			},
		},
	}

	w := issue.FirstAutomatic("linux")
	if w == nil || w.Description != "Portable fallback" {
		t.Errorf("expected the portable workaround on linux, got %v", w)
	}
	w = issue.FirstAutomatic("windows")
	if w == nil || w.Description != "Windows-only registry tweak" {
		t.Errorf("expected the scoped workaround on windows, got %v", w)
	}
}

func TestMatchConfidenceIsClauseFraction(t *testing.T) {
	reg := testRegistry(KnownIssue{
		ID: "partial",
		Signature: []SignatureClause{
			exitClause(2, 2),
			clause(ClauseStdoutRegex, `never appears`),
		},
	})

	matches := reg.MatchResult(failedBuild())
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Confidence != 0.5 {
		t.Errorf("1 of 2 clauses satisfied: expected 0.5, got %v", matches[0].Confidence)
	}
}

func TestMatchExcludesForeignBuildSystem(t *testing.T) {
	reg := testRegistry(KnownIssue{
		ID:           "bazel-only",
		BuildSystems: []buildsys.Kind{buildsys.KindBazel},
		Signature:    []SignatureClause{exitClause(0, 255)},
	})

	if matches := reg.MatchResult(failedBuild()); len(matches) != 0 {
		t.Errorf("issue scoped to bazel must not match a cmake result, got %v", matches)
	}
}

func TestMatchNoSatisfiedClauseExcluded(t *testing.T) {
	reg := testRegistry(KnownIssue{
		ID:        "unrelated",
		Signature: []SignatureClause{clause(ClauseStderrRegex, `undefined reference`)},
	})

	if matches := reg.MatchResult(failedBuild()); len(matches) != 0 {
		t.Errorf("expected no match, got %v", matches)
	}
}

func TestMatchPlatformClause(t *testing.T) {
	reg := testRegistry(KnownIssue{
		ID: "linux-only",
		Signature: []SignatureClause{
			{Type: ClausePlatform, Platforms: []string{"linux"}},
			exitClause(2, 2),
		},
	})

	matches := reg.MatchResult(failedBuild())
	if len(matches) != 1 || matches[0].Confidence != 1.0 {
		t.Fatalf("platform clause should be satisfied on linux, got %v", matches)
	}

	other := failedBuild()
	other.Platform = "windows"
	matches = reg.MatchResult(other)
	if len(matches) != 1 || matches[0].Confidence != 0.5 {
		t.Errorf("platform clause must fail on windows, got %v", matches)
	}
}

func TestMatchOrderingScopedBeatsUnscopedOnTie(t *testing.T) {
	shared := []SignatureClause{exitClause(2, 2)}
	reg := testRegistry(
		KnownIssue{ID: "z-unscoped", Signature: shared},
		KnownIssue{ID: "a-scoped", BuildSystems: []buildsys.Kind{buildsys.KindCMake}, Signature: shared},
	)

	matches := reg.MatchResult(failedBuild())
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Issue.ID != "a-scoped" {
		t.Errorf("scoped issue must rank first on a confidence tie, got %s", matches[0].Issue.ID)
	}
}

// Adding an unsatisfied clause to a signature must never raise its
// confidence for a fixed build result.
func TestMatchMonotonicity(t *testing.T) {
	result := failedBuild()

	base := KnownIssue{ID: "base", Signature: []SignatureClause{
		clause(ClauseStderrRegex, `zlib\.h`),
		exitClause(2, 2),
	}}
	extended := KnownIssue{ID: "extended", Signature: append(
		append([]SignatureClause{}, base.Signature...),
		clause(ClauseStdoutRegex, `never appears`),
	)}

	baseConf := testRegistry(base).MatchResult(result)[0].Confidence
	extConf := testRegistry(extended).MatchResult(result)[0].Confidence
	if extConf > baseConf {
		t.Errorf("adding an unsatisfied clause raised confidence: %v -> %v", baseConf, extConf)
	}

	// A satisfied added clause holds full confidence at 1.0.
	held := KnownIssue{ID: "held", Signature: append(
		append([]SignatureClause{}, base.Signature...),
		clause(ClauseStderrRegex, `No such file`),
	)}
	if conf := testRegistry(held).MatchResult(result)[0].Confidence; conf != 1.0 {
		t.Errorf("fully satisfied signature must stay at 1.0, got %v", conf)
	}
}
