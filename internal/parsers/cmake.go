package parsers

import (
	"path/filepath"
	"regexp"
	"strings"

	"bde/internal/buildsys"
	"bde/internal/logging"
)

// CMake parses CMakeLists.txt trees and included .cmake files.
//
// Conditionals are evaluated conservatively: if/else bodies are both
// included, because a false positive dependency is preferable to a missed
// one when the output feeds advisory indexing rather than a build.
type CMake struct {
	logger *logging.Logger
}

// NewCMake creates a CMake parser.
func NewCMake(logger *logging.Logger) *CMake {
	return &CMake{logger: logger}
}

// Kind identifies the build system this parser handles.
func (c *CMake) Kind() buildsys.Kind {
	return buildsys.KindCMake
}

// Detect checks for CMakeLists.txt markers.
func (c *CMake) Detect(root string) float64 {
	return detectMarkers(root, []string{"CMakeLists.txt"}, nil)
}

var cmakeVarRe = regexp.MustCompile(`\$\{([A-Za-z0-9_\-]+)\}`)
var cmakeVersionRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

// cmakeSourceKeywords are add_executable/add_library argument keywords that
// are not source files.
var cmakeSourceKeywords = map[string]bool{
	"WIN32": true, "MACOSX_BUNDLE": true, "EXCLUDE_FROM_ALL": true,
	"STATIC": true, "SHARED": true, "MODULE": true, "OBJECT": true,
	"INTERFACE": true, "UNKNOWN": true,
}

var cmakeLinkKeywords = map[string]bool{
	"PUBLIC": true, "PRIVATE": true, "INTERFACE": true,
	"debug": true, "optimized": true, "general": true,
	"LINK_PUBLIC": true, "LINK_PRIVATE": true, "LINK_INTERFACE_LIBRARIES": true,
}

type cmakeLink struct {
	target string
	libs   []string
	file   string
	line   int
}

// Parse scans every CMakeLists.txt under root plus files pulled in via
// include(), then resolves target_link_libraries entries against the
// declared target set: known names become internal deps, everything else an
// external dependency.
func (c *CMake) Parse(root string) (*buildsys.Graph, error) {
	g := buildsys.NewGraph()
	g.AddSystem(buildsys.KindCMake)

	files := walkNamed(root, -1, []string{"CMakeLists.txt"})
	visited := make(map[string]bool, len(files))
	queue := append([]string{}, files...)

	vars := make(map[string]string)
	warnedVars := make(map[string]bool)
	var links []cmakeLink
	targetIdx := make(map[string]int) // target name -> index in g.Targets

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if visited[path] {
			continue
		}
		visited[path] = true

		src, ok := readWarn(g, buildsys.KindCMake, root, path)
		if !ok {
			continue
		}
		file := relPath(root, path)
		dir := filepath.Dir(file)

		calls, balanced := scanCalls(src)
		if !balanced {
			g.AddWarning(buildsys.ParseWarning{
				BuildSystem: buildsys.KindCMake,
				File:        file,
				Message:     "unbalanced parentheses; file parsed partially",
			})
		}

		for _, call := range calls {
			name := strings.ToLower(call.Name)
			args := splitArgs(call.Args)
			for i := range args {
				args[i] = c.expand(args[i], vars, g, file, call.Line, warnedVars)
			}

			switch name {
			case "set":
				if len(args) >= 2 {
					vars[args[0]] = strings.Join(args[1:], ";")
				}
			case "add_executable":
				c.addTarget(g, targetIdx, args, buildsys.TargetBinary, dir)
			case "add_library":
				c.addTarget(g, targetIdx, args, buildsys.TargetLibrary, dir)
			case "target_link_libraries":
				if len(args) >= 2 {
					links = append(links, cmakeLink{target: args[0], libs: args[1:], file: file, line: call.Line})
				}
			case "find_package":
				c.findPackage(g, args)
			case "pkg_check_modules", "pkg_search_module":
				c.pkgCheckModules(g, args)
			case "fetchcontent_declare":
				if len(args) >= 1 && args[0] != "" {
					g.AddDependency(buildsys.Dependency{
						Name:   args[0],
						Origin: buildsys.OriginFetched,
					})
				}
			case "include":
				if len(args) >= 1 && strings.HasSuffix(args[0], ".cmake") && !strings.Contains(args[0], "${") {
					included := filepath.Join(root, dir, filepath.FromSlash(args[0]))
					if fileExists(included) && !visited[included] {
						queue = append(queue, included)
					}
				}
			}
			// if/elseif/else/endif are intentionally not handled: both
			// branches contribute to the graph.
		}
	}

	c.resolveLinks(g, targetIdx, links)
	g.Normalize()
	return g, nil
}

func (c *CMake) addTarget(g *buildsys.Graph, idx map[string]int, args []string, kind buildsys.TargetKind, dir string) {
	if len(args) == 0 || args[0] == "" {
		return
	}
	for _, a := range args {
		// Imported and alias pseudo-targets are not buildable units.
		if a == "IMPORTED" || a == "ALIAS" {
			return
		}
	}
	name := args[0]
	var sources []string
	for _, a := range args[1:] {
		if cmakeSourceKeywords[a] || strings.Contains(a, "${") {
			continue
		}
		src := a
		if dir != "." {
			src = dir + "/" + a
		}
		sources = append(sources, src)
	}
	if _, exists := idx[name]; exists {
		return
	}
	idx[name] = len(g.Targets)
	g.AddTarget(buildsys.Target{
		Name:        name,
		Kind:        kind,
		Sources:     sources,
		BuildSystem: buildsys.KindCMake,
	})
}

func (c *CMake) findPackage(g *buildsys.Graph, args []string) {
	if len(args) == 0 || args[0] == "" {
		return
	}
	dep := buildsys.Dependency{
		Name:     args[0],
		Optional: true,
		Origin:   buildsys.OriginSystem,
	}
	for _, a := range args[1:] {
		switch {
		case a == "REQUIRED":
			dep.Optional = false
		case cmakeVersionRe.MatchString(a):
			dep.Constraints = append(dep.Constraints, a)
		}
	}
	g.AddDependency(dep)
}

func (c *CMake) pkgCheckModules(g *buildsys.Graph, args []string) {
	if len(args) < 2 {
		return
	}
	required := false
	for _, a := range args[1:] {
		switch a {
		case "REQUIRED":
			required = true
		case "QUIET", "QUIETLY", "IMPORTED_TARGET", "GLOBAL", "NO_CMAKE_PATH", "NO_CMAKE_ENVIRONMENT_PATH":
			// option keywords
		default:
			name, constraint := splitModuleSpec(a)
			if name == "" {
				continue
			}
			dep := buildsys.Dependency{
				Name:     name,
				Optional: !required,
				Origin:   buildsys.OriginSystem,
			}
			if constraint != "" {
				dep.Constraints = []string{constraint}
			}
			g.AddDependency(dep)
		}
	}
}

func (c *CMake) resolveLinks(g *buildsys.Graph, idx map[string]int, links []cmakeLink) {
	for _, link := range links {
		ti, ok := idx[link.target]
		if !ok {
			g.AddWarning(buildsys.ParseWarning{
				BuildSystem: buildsys.KindCMake,
				File:        link.file,
				Line:        link.line,
				Message:     "target_link_libraries for undeclared target " + link.target,
			})
			continue
		}
		target := &g.Targets[ti]
		for _, lib := range link.libs {
			if cmakeLinkKeywords[lib] || lib == "" || strings.Contains(lib, "${") {
				continue
			}
			if _, internal := idx[lib]; internal {
				target.InternalDeps = append(target.InternalDeps, lib)
				continue
			}
			dep := buildsys.Dependency{
				Name:   buildsys.NormalizeName(strings.TrimPrefix(lib, "-l")),
				Origin: buildsys.OriginSystem,
			}
			target.ExternalDeps = append(target.ExternalDeps, dep)
			g.AddDependency(dep)
		}
	}
}

// expand substitutes ${VAR} references from set() assignments. Unresolved
// variables are left as literal placeholders and flagged once per variable
// per file.
func (c *CMake) expand(s string, vars map[string]string, g *buildsys.Graph, file string, line int, warned map[string]bool) string {
	for range [8]struct{}{} {
		replaced := false
		s = cmakeVarRe.ReplaceAllStringFunc(s, func(m string) string {
			name := m[2 : len(m)-1]
			if v, ok := vars[name]; ok {
				replaced = true
				return v
			}
			key := file + "\x00" + name
			if !warned[key] {
				warned[key] = true
				g.AddWarning(buildsys.ParseWarning{
					BuildSystem: buildsys.KindCMake,
					File:        file,
					Line:        line,
					Message:     "unresolved variable ${" + name + "} left as literal placeholder",
				})
			}
			return m
		})
		if !replaced {
			break
		}
	}
	return s
}

// splitModuleSpec splits a pkg-config module spec such as "zlib>=1.2.11"
// into its name and constraint.
func splitModuleSpec(spec string) (name, constraint string) {
	for _, op := range []string{">=", "<=", "!=", "==", "=", ">", "<"} {
		if i := strings.Index(spec, op); i > 0 {
			return strings.TrimSpace(spec[:i]), op + strings.TrimSpace(spec[i+len(op):])
		}
	}
	return strings.TrimSpace(spec), ""
}
