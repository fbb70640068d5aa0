package parsers

import (
	"testing"

	"bde/internal/buildsys"
	"bde/internal/logging"
)

func TestBazelBuildRules(t *testing.T) {
	root := writeTree(t, map[string]string{
		"BUILD.bazel": `
cc_library(
    name = "core",
    srcs = ["core.cc"],
    hdrs = ["core.h"],
)

cc_binary(
    name = "app",
    srcs = ["main.cc"],
    deps = [
        ":core",
        "@zlib//:zlib",
    ],
)
`,
	})

	g, err := NewBazel(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	app := findTarget(g, "app")
	if app == nil {
		t.Fatal("target app not found")
	}
	if app.Kind != buildsys.TargetBinary {
		t.Errorf("expected binary, got %s", app.Kind)
	}
	if len(app.InternalDeps) != 1 || app.InternalDeps[0] != "core" {
		t.Errorf("expected internal dep core, got %v", app.InternalDeps)
	}
	if len(app.ExternalDeps) != 1 || app.ExternalDeps[0].Name != "zlib" {
		t.Errorf("expected external dep zlib, got %v", app.ExternalDeps)
	}
	if dep := findDep(g, "zlib", buildsys.OriginFetched); dep == nil {
		t.Error("external repository dep must have fetched origin")
	}
}

func TestBazelExternalDepNamesAreNormalized(t *testing.T) {
	root := writeTree(t, map[string]string{
		"BUILD.bazel": `
cc_binary(
    name = "app",
    srcs = ["main.cc"],
    deps = ["@BoringSSL//:ssl"],
)
`,
	})

	g, err := NewBazel(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	app := findTarget(g, "app")
	if app == nil {
		t.Fatal("target app not found")
	}
	if len(app.ExternalDeps) != 1 || app.ExternalDeps[0].Name != "boringssl" {
		t.Errorf("target-level dep name must be normalized, got %v", app.ExternalDeps)
	}
	if findDep(g, "boringssl", buildsys.OriginFetched) == nil {
		t.Error("graph-level dep boringssl not found")
	}
}

func TestBazelWorkspaceRepositories(t *testing.T) {
	root := writeTree(t, map[string]string{
		"WORKSPACE": `
http_archive(
    name = "com_google_absl",
    urls = ["https://example.com/absl.zip"],
)
git_repository(
    name = "boringssl",
    remote = "https://example.com/boringssl.git",
)
local_repository(
    name = "vendored_lib",
    path = "third_party/vendored_lib",
)
`,
	})

	g, err := NewBazel(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if findDep(g, "com_google_absl", buildsys.OriginFetched) == nil {
		t.Error("http_archive dependency missing")
	}
	if findDep(g, "boringssl", buildsys.OriginFetched) == nil {
		t.Error("git_repository dependency missing")
	}
	if findDep(g, "vendored_lib", buildsys.OriginVendored) == nil {
		t.Error("local_repository must have vendored origin")
	}
}

func TestBazelModuleDeps(t *testing.T) {
	root := writeTree(t, map[string]string{
		"MODULE.bazel": `
module(name = "demo", version = "0.1")
bazel_dep(name = "zlib", version = "1.3.1")
`,
	})

	g, err := NewBazel(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	zlib := findDep(g, "zlib", buildsys.OriginFetched)
	if zlib == nil {
		t.Fatal("bazel_dep zlib not found")
	}
	if len(zlib.Constraints) != 1 || zlib.Constraints[0] != "1.3.1" {
		t.Errorf("expected version constraint 1.3.1, got %v", zlib.Constraints)
	}
}

func TestBazelSubpackageSourcesArePrefixed(t *testing.T) {
	root := writeTree(t, map[string]string{
		"lib/BUILD": `
cc_library(
    name = "util",
    srcs = ["util.cc"],
)
`,
	})

	g, err := NewBazel(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	util := findTarget(g, "util")
	if util == nil {
		t.Fatal("target util not found")
	}
	if len(util.Sources) != 1 || util.Sources[0] != "lib/util.cc" {
		t.Errorf("expected package-prefixed source, got %v", util.Sources)
	}
}
