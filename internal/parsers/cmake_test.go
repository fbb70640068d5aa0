package parsers

import (
	"os"
	"path/filepath"
	"testing"

	"bde/internal/buildsys"
	"bde/internal/logging"
)

// writeTree creates a temp project with the given relative files.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root, err := os.MkdirTemp("", "bde-parser-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(root) })

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
	return root
}

func findDep(g *buildsys.Graph, name string, origin buildsys.Origin) *buildsys.Dependency {
	for i := range g.Dependencies {
		if g.Dependencies[i].Name == name && g.Dependencies[i].Origin == origin {
			return &g.Dependencies[i]
		}
	}
	return nil
}

func findTarget(g *buildsys.Graph, name string) *buildsys.Target {
	for i := range g.Targets {
		if g.Targets[i].Name == name {
			return &g.Targets[i]
		}
	}
	return nil
}

func TestCMakeParseExecutableWithLinkedPackage(t *testing.T) {
	root := writeTree(t, map[string]string{
		"CMakeLists.txt": `
cmake_minimum_required(VERSION 3.10)
project(demo)

find_package(ZLIB 1.2 REQUIRED)
add_executable(app main.c util.c)
target_link_libraries(app PRIVATE ZLIB::ZLIB)
`,
	})

	g, err := NewCMake(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	app := findTarget(g, "app")
	if app == nil {
		t.Fatal("target app not found")
	}
	if app.Kind != buildsys.TargetBinary {
		t.Errorf("expected binary target, got %s", app.Kind)
	}
	if len(app.Sources) != 2 {
		t.Errorf("expected 2 sources, got %v", app.Sources)
	}
	if len(app.ExternalDeps) != 1 || app.ExternalDeps[0].Name != "zlib" {
		t.Errorf("expected app to link zlib, got %v", app.ExternalDeps)
	}

	zlib := findDep(g, "zlib", buildsys.OriginSystem)
	if zlib == nil {
		t.Fatal("dependency zlib not found")
	}
	if zlib.Optional {
		t.Error("REQUIRED package must not be optional")
	}
	if len(zlib.Constraints) != 1 || zlib.Constraints[0] != "1.2" {
		t.Errorf("expected version constraint 1.2, got %v", zlib.Constraints)
	}
}

func TestCMakeInternalVsExternalLinks(t *testing.T) {
	root := writeTree(t, map[string]string{
		"CMakeLists.txt": `
add_library(core src/core.c)
add_executable(app main.c)
target_link_libraries(app PRIVATE core m)
`,
	})

	g, err := NewCMake(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	app := findTarget(g, "app")
	if app == nil {
		t.Fatal("target app not found")
	}
	if len(app.InternalDeps) != 1 || app.InternalDeps[0] != "core" {
		t.Errorf("expected internal dep core, got %v", app.InternalDeps)
	}
	if len(app.ExternalDeps) != 1 || app.ExternalDeps[0].Name != "m" {
		t.Errorf("expected external dep m, got %v", app.ExternalDeps)
	}
}

func TestCMakeVariableExpansion(t *testing.T) {
	root := writeTree(t, map[string]string{
		"CMakeLists.txt": `
set(APP_NAME demo)
add_executable(${APP_NAME} main.c)
`,
	})

	g, err := NewCMake(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if findTarget(g, "demo") == nil {
		t.Errorf("expected target demo from expanded variable, targets: %v", g.Targets)
	}
}

func TestCMakeUnresolvedVariableWarns(t *testing.T) {
	root := writeTree(t, map[string]string{
		"CMakeLists.txt": `find_package(${MYSTERY_PKG} REQUIRED)` + "\n",
	})

	g, err := NewCMake(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(g.Warnings) == 0 {
		t.Error("expected a warning for an unresolved variable")
	}
}

func TestCMakeBothConditionalBranchesContribute(t *testing.T) {
	root := writeTree(t, map[string]string{
		"CMakeLists.txt": `
if(UNIX)
  find_package(Threads REQUIRED)
else()
  find_package(WindowsSDK REQUIRED)
endif()
`,
	})

	g, err := NewCMake(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if findDep(g, "threads", buildsys.OriginSystem) == nil {
		t.Error("if branch dependency missing")
	}
	if findDep(g, "windowssdk", buildsys.OriginSystem) == nil {
		t.Error("else branch dependency missing")
	}
}

func TestCMakeFetchContentAndPkgConfig(t *testing.T) {
	root := writeTree(t, map[string]string{
		"CMakeLists.txt": `
include(FetchContent)
FetchContent_Declare(googletest URL https://example.com/gtest.zip)
pkg_check_modules(DEPS REQUIRED zlib>=1.2.11 libcurl)
`,
	})

	g, err := NewCMake(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if findDep(g, "googletest", buildsys.OriginFetched) == nil {
		t.Error("FetchContent dependency must have fetched origin")
	}
	zlib := findDep(g, "zlib", buildsys.OriginSystem)
	if zlib == nil {
		t.Fatal("pkg-config module zlib not found")
	}
	if len(zlib.Constraints) != 1 || zlib.Constraints[0] != ">=1.2.11" {
		t.Errorf("expected constraint >=1.2.11, got %v", zlib.Constraints)
	}
	if curl := findDep(g, "libcurl", buildsys.OriginSystem); curl == nil || curl.Optional {
		t.Errorf("expected required libcurl, got %v", curl)
	}
}

func TestCMakeIncludedFileIsParsed(t *testing.T) {
	root := writeTree(t, map[string]string{
		"CMakeLists.txt": `include(deps.cmake)` + "\n",
		"deps.cmake":     `find_package(OpenSSL REQUIRED)` + "\n",
	})

	g, err := NewCMake(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if findDep(g, "openssl", buildsys.OriginSystem) == nil {
		t.Error("dependency from included .cmake file missing")
	}
}

func TestCMakeSubdirectoryListsAreWalked(t *testing.T) {
	root := writeTree(t, map[string]string{
		"CMakeLists.txt":     `add_subdirectory(lib)` + "\n",
		"lib/CMakeLists.txt": `add_library(sub lib.c)` + "\n",
	})

	g, err := NewCMake(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sub := findTarget(g, "sub")
	if sub == nil {
		t.Fatal("target in subdirectory not found")
	}
	if len(sub.Sources) != 1 || sub.Sources[0] != "lib/lib.c" {
		t.Errorf("expected source path relative to root, got %v", sub.Sources)
	}
}

func TestCMakeMalformedFileDegradesToWarning(t *testing.T) {
	root := writeTree(t, map[string]string{
		"CMakeLists.txt": `add_executable(app main.c` + "\n",
	})

	g, err := NewCMake(logging.Discard()).Parse(root)
	if err != nil {
		t.Fatalf("malformed input must not error: %v", err)
	}
	if len(g.Warnings) == 0 {
		t.Error("expected a warning for unbalanced parentheses")
	}
}
