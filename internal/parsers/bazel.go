package parsers

import (
	"path/filepath"
	"strings"

	"bde/internal/buildsys"
	"bde/internal/logging"
)

// Bazel parses literal rule calls in BUILD/BUILD.bazel files and
// repository-fetch declarations in WORKSPACE files. The Starlark macro layer
// is not interpreted; rules produced by macros or list comprehensions are
// invisible to this parser.
type Bazel struct {
	logger *logging.Logger
}

// NewBazel creates a Bazel parser.
func NewBazel(logger *logging.Logger) *Bazel {
	return &Bazel{logger: logger}
}

// Kind identifies the build system this parser handles.
func (b *Bazel) Kind() buildsys.Kind {
	return buildsys.KindBazel
}

// Detect checks for BUILD/WORKSPACE markers.
func (b *Bazel) Detect(root string) float64 {
	return detectMarkers(root,
		[]string{"BUILD.bazel", "BUILD", "WORKSPACE", "WORKSPACE.bazel", "MODULE.bazel"},
		nil)
}

// Parse scans BUILD files for cc_binary/cc_library rules and WORKSPACE
// files for http_archive/git_repository external repositories.
func (b *Bazel) Parse(root string) (*buildsys.Graph, error) {
	g := buildsys.NewGraph()
	g.AddSystem(buildsys.KindBazel)

	for _, path := range walkNamed(root, -1, []string{"BUILD", "BUILD.bazel"}) {
		src, ok := readWarn(g, buildsys.KindBazel, root, path)
		if !ok {
			continue
		}
		b.parseBuildFile(g, root, path, src)
	}

	for _, path := range walkNamed(root, -1, []string{"WORKSPACE", "WORKSPACE.bazel", "MODULE.bazel"}) {
		src, ok := readWarn(g, buildsys.KindBazel, root, path)
		if !ok {
			continue
		}
		b.parseWorkspace(g, root, path, src)
	}

	g.Normalize()
	return g, nil
}

func (b *Bazel) parseBuildFile(g *buildsys.Graph, root, path, src string) {
	file := relPath(root, path)
	pkg := filepath.Dir(file)

	calls, balanced := scanCalls(src)
	if !balanced {
		g.AddWarning(buildsys.ParseWarning{
			BuildSystem: buildsys.KindBazel,
			File:        file,
			Message:     "unbalanced parentheses; file parsed partially",
		})
	}

	for _, call := range calls {
		var kind buildsys.TargetKind
		switch call.Name {
		case "cc_binary":
			kind = buildsys.TargetBinary
		case "cc_library", "cc_shared_library", "cc_static_library":
			kind = buildsys.TargetLibrary
		default:
			continue
		}

		name := bazelStringAttr(call.Args, "name")
		if name == "" {
			g.AddWarning(buildsys.ParseWarning{
				BuildSystem: buildsys.KindBazel,
				File:        file,
				Line:        call.Line,
				Message:     call.Name + " rule without a literal name skipped",
			})
			continue
		}

		target := buildsys.Target{
			Name:        name,
			Kind:        kind,
			BuildSystem: buildsys.KindBazel,
		}
		for _, s := range bazelListAttr(call.Args, "srcs") {
			if pkg != "." {
				s = pkg + "/" + s
			}
			target.Sources = append(target.Sources, s)
		}
		for _, label := range bazelListAttr(call.Args, "deps") {
			if repo, external := bazelExternalRepo(label); external {
				dep := buildsys.Dependency{Name: buildsys.NormalizeName(repo), Origin: buildsys.OriginFetched}
				target.ExternalDeps = append(target.ExternalDeps, dep)
				g.AddDependency(dep)
				continue
			}
			target.InternalDeps = append(target.InternalDeps, bazelLabelName(label))
		}

		g.AddTarget(target)
	}
}

func (b *Bazel) parseWorkspace(g *buildsys.Graph, root, path, src string) {
	calls, balanced := scanCalls(src)
	if !balanced {
		g.AddWarning(buildsys.ParseWarning{
			BuildSystem: buildsys.KindBazel,
			File:        relPath(root, path),
			Message:     "unbalanced parentheses; file parsed partially",
		})
	}

	for _, call := range calls {
		switch call.Name {
		case "http_archive", "git_repository", "new_git_repository", "local_repository":
			name := bazelStringAttr(call.Args, "name")
			if name == "" {
				continue
			}
			origin := buildsys.OriginFetched
			if call.Name == "local_repository" {
				origin = buildsys.OriginVendored
			}
			g.AddDependency(buildsys.Dependency{Name: name, Origin: origin})
		case "bazel_dep":
			// MODULE.bazel: bazel_dep(name = "zlib", version = "1.3")
			name := bazelStringAttr(call.Args, "name")
			if name == "" {
				continue
			}
			dep := buildsys.Dependency{Name: name, Origin: buildsys.OriginFetched}
			if v := bazelStringAttr(call.Args, "version"); v != "" {
				dep.Constraints = []string{v}
			}
			g.AddDependency(dep)
		}
	}
}

func bazelStringAttr(raw, key string) string {
	v, ok := keywordValue(raw, key, '=')
	if !ok {
		return ""
	}
	lits := stringLiterals(v)
	if len(lits) == 0 {
		return ""
	}
	return lits[0]
}

func bazelListAttr(raw, key string) []string {
	v, ok := keywordValue(raw, key, '=')
	if !ok {
		return nil
	}
	return stringLiterals(v)
}

// bazelExternalRepo reports whether a dep label points into an external
// repository (@repo//...), returning the repository name.
func bazelExternalRepo(label string) (string, bool) {
	if !strings.HasPrefix(label, "@") {
		return "", false
	}
	rest := label[1:]
	if i := strings.Index(rest, "//"); i >= 0 {
		rest = rest[:i]
	}
	return rest, rest != ""
}

// bazelLabelName reduces a same-workspace label to its target name:
// ":lib" -> lib, "//foo/bar:baz" -> baz, "//foo/bar" -> bar.
func bazelLabelName(label string) string {
	if i := strings.LastIndex(label, ":"); i >= 0 {
		return label[i+1:]
	}
	if i := strings.LastIndex(label, "/"); i >= 0 {
		return label[i+1:]
	}
	return label
}
