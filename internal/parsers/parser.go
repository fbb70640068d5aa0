// Package parsers implements the per-build-system detect/parse contract.
//
// Each parser does best-effort static extraction over one configuration
// dialect. Scripting dialects (SCons, Bazel's Starlark macro layer) are
// deliberately not interpreted; only literal call sites are extracted, so
// dynamically constructed targets and dependencies are invisible here.
package parsers

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bde/internal/buildsys"
	"bde/internal/logging"
	"bde/internal/paths"
)

// Parser is the uniform contract every build system parser implements.
type Parser interface {
	// Kind identifies the build system this parser handles.
	Kind() buildsys.Kind
	// Detect returns a confidence in [0,1] from cheap marker-file checks.
	// It never runs a full parse.
	Detect(root string) float64
	// Parse extracts a dependency graph from the tree under root. A single
	// malformed file degrades to a partial graph plus a warning on the
	// graph; Parse only errors when the root itself is unusable.
	Parse(root string) (*buildsys.Graph, error)
}

// Table returns the flat lookup of build system kind to parser.
// No dispatch beyond this map exists; adding a build system means adding
// a parser here.
func Table(logger *logging.Logger) map[buildsys.Kind]Parser {
	all := []Parser{
		NewCMake(logger),
		NewMeson(logger),
		NewSCons(logger),
		NewAutotools(logger),
		NewBazel(logger),
	}
	table := make(map[buildsys.Kind]Parser, len(all))
	for _, p := range all {
		table[p.Kind()] = p
	}
	return table
}

// Detection confidence tiers. A canonical marker at the root is certain; a
// vendored subtree (marker below the root) still surfaces above typical
// minimum-confidence thresholds so multi-system projects are parsed whole.
const (
	confidenceRootCanonical = 1.0
	confidenceSubCanonical  = 0.6
	confidenceRootSecondary = 0.5
	confidenceSubSecondary  = 0.25
)

// maxDetectDepth bounds the marker walk below the project root.
const maxDetectDepth = 3

var ignoreDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".bde":         true,
	"build":        true,
	"builddir":     true,
	"node_modules": true,
	"bazel-out":    true,
	"bazel-bin":    true,
}

// detectMarkers scores a tree by marker file names. canonical names score
// full confidence at the root; secondary names are weaker corroboration.
func detectMarkers(root string, canonical, secondary []string) float64 {
	best := 0.0
	for _, name := range canonical {
		if fileExists(filepath.Join(root, name)) {
			return confidenceRootCanonical
		}
	}
	for _, name := range secondary {
		if fileExists(filepath.Join(root, name)) {
			best = confidenceRootSecondary
			break
		}
	}

	found := walkNamed(root, maxDetectDepth, append(append([]string{}, canonical...), secondary...))
	for _, path := range found {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == filepath.Base(path) {
			// Root-level hits were scored above.
			continue
		}
		name := filepath.Base(path)
		for _, c := range canonical {
			if name == c && best < confidenceSubCanonical {
				best = confidenceSubCanonical
			}
		}
		for _, s := range secondary {
			if name == s && best < confidenceSubSecondary {
				best = confidenceSubSecondary
			}
		}
	}
	return best
}

// walkNamed returns every file under root (to maxDepth levels, 0 = root only)
// whose base name matches one of names, sorted for deterministic iteration.
func walkNamed(root string, maxDepth int, names []string) []string {
	nameSet := make(map[string]bool, len(names))
	for _, n := range names {
		nameSet[n] = true
	}

	var out []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		depth := 0
		if rel != "." {
			depth = len(strings.Split(rel, string(filepath.Separator))) - 1
		}
		if d.IsDir() {
			if rel != "." && (ignoreDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			if maxDepth >= 0 && depth >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if nameSet[d.Name()] {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// relPath renders path relative to root with forward slashes for warnings
// and source lists.
func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return paths.Normalize(path)
	}
	return paths.Normalize(rel)
}

// readWarn reads a file, converting a read failure into a parse warning on
// the graph instead of an error.
func readWarn(g *buildsys.Graph, kind buildsys.Kind, root, path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		g.AddWarning(buildsys.ParseWarning{
			BuildSystem: kind,
			File:        relPath(root, path),
			Message:     "unreadable build file: " + err.Error(),
		})
		return "", false
	}
	return string(data), true
}
