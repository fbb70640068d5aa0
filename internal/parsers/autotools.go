package parsers

import (
	"path/filepath"
	"regexp"
	"strings"

	"bde/internal/buildsys"
	"bde/internal/logging"
)

// Autotools parses configure.ac macros and Makefile.am target declarations.
type Autotools struct {
	logger *logging.Logger
}

// NewAutotools creates an Autotools parser.
func NewAutotools(logger *logging.Logger) *Autotools {
	return &Autotools{logger: logger}
}

// Kind identifies the build system this parser handles.
func (a *Autotools) Kind() buildsys.Kind {
	return buildsys.KindAutotools
}

// Detect checks for configure.ac/Makefile.am markers.
func (a *Autotools) Detect(root string) float64 {
	return detectMarkers(root, []string{"configure.ac"}, []string{"configure.in", "Makefile.am"})
}

// Parse scans configure.ac/configure.in plus every Makefile.am under root.
func (a *Autotools) Parse(root string) (*buildsys.Graph, error) {
	g := buildsys.NewGraph()
	g.AddSystem(buildsys.KindAutotools)

	for _, path := range walkNamed(root, -1, []string{"configure.ac", "configure.in"}) {
		src, ok := readWarn(g, buildsys.KindAutotools, root, path)
		if !ok {
			continue
		}
		a.parseConfigure(g, root, path, src)
	}

	for _, path := range walkNamed(root, -1, []string{"Makefile.am"}) {
		src, ok := readWarn(g, buildsys.KindAutotools, root, path)
		if !ok {
			continue
		}
		a.parseMakefileAm(g, root, path, src)
	}

	g.Normalize()
	return g, nil
}

var dnlRe = regexp.MustCompile(`(?m)^\s*dnl.*$`)

func (a *Autotools) parseConfigure(g *buildsys.Graph, root, path, src string) {
	file := relPath(root, path)
	src = dnlRe.ReplaceAllString(src, "")

	calls, balanced := scanCalls(src)
	if !balanced {
		g.AddWarning(buildsys.ParseWarning{
			BuildSystem: buildsys.KindAutotools,
			File:        file,
			Message:     "unbalanced parentheses; file parsed partially",
		})
	}

	for _, call := range calls {
		switch call.Name {
		case "AC_CHECK_LIB":
			args := splitArgs(call.Args)
			if len(args) >= 1 {
				g.AddDependency(buildsys.Dependency{
					Name:   stripM4Quotes(args[0]),
					Origin: buildsys.OriginSystem,
				})
			}
		case "PKG_CHECK_MODULES":
			args := splitArgs(call.Args)
			if len(args) >= 2 {
				a.pkgModules(g, args[1:])
			}
		case "AC_CHECK_HEADER", "AC_CHECK_HEADERS":
			// Header checks identify the same system dependencies as
			// AC_CHECK_LIB when the header maps cleanly to a library name;
			// too ambiguous to extract, so skipped.
		}
	}
}

// pkgModules parses PKG_CHECK_MODULES module lists: whitespace-separated
// names, each optionally followed by an operator and version.
func (a *Autotools) pkgModules(g *buildsys.Graph, args []string) {
	var tokens []string
	for _, arg := range args {
		for _, t := range strings.Fields(stripM4Quotes(arg)) {
			tokens = append(tokens, t)
		}
	}

	i := 0
	for i < len(tokens) {
		name, constraint := splitModuleSpec(tokens[i])
		i++
		if constraint == "" && i < len(tokens) && isConstraintOp(tokens[i]) {
			op := tokens[i]
			i++
			if i < len(tokens) {
				constraint = op + tokens[i]
				i++
			}
		}
		if name == "" || isConstraintOp(name) {
			continue
		}
		dep := buildsys.Dependency{Name: name, Origin: buildsys.OriginSystem}
		if constraint != "" {
			dep.Constraints = []string{constraint}
		}
		g.AddDependency(dep)
	}
}

var amContinuationRe = regexp.MustCompile(`\\\n\s*`)

// amAssignRe matches `VAR = value` and `VAR += value` Makefile.am lines.
var amAssignRe = regexp.MustCompile(`(?m)^([A-Za-z0-9_]+)\s*\+?=\s*(.*)$`)

var amProgramVars = map[string]bool{
	"bin_PROGRAMS": true, "noinst_PROGRAMS": true, "sbin_PROGRAMS": true,
	"libexec_PROGRAMS": true, "check_PROGRAMS": true,
}

var amLibraryVars = map[string]bool{
	"lib_LTLIBRARIES": true, "noinst_LTLIBRARIES": true,
	"lib_LIBRARIES": true, "noinst_LIBRARIES": true,
	"pkglib_LTLIBRARIES": true,
}

func (a *Autotools) parseMakefileAm(g *buildsys.Graph, root, path, src string) {
	dir := filepath.Dir(relPath(root, path))
	src = amContinuationRe.ReplaceAllString(src, " ")

	// Gather all assignments first; _SOURCES and _LDADD lines may precede
	// the PROGRAMS/LTLIBRARIES declaration they belong to.
	assigns := make(map[string][]string)
	for _, m := range amAssignRe.FindAllStringSubmatch(src, -1) {
		assigns[m[1]] = append(assigns[m[1]], strings.Fields(stripComment(m[2]))...)
	}

	type declared struct {
		name  string
		canon string
		kind  buildsys.TargetKind
	}
	var decls []declared
	for v, values := range assigns {
		var kind buildsys.TargetKind
		switch {
		case amProgramVars[v]:
			kind = buildsys.TargetBinary
		case amLibraryVars[v]:
			kind = buildsys.TargetLibrary
		default:
			continue
		}
		for _, name := range values {
			decls = append(decls, declared{name: name, canon: amCanonical(name), kind: kind})
		}
	}

	for _, d := range decls {
		target := buildsys.Target{
			Name:        d.name,
			Kind:        d.kind,
			BuildSystem: buildsys.KindAutotools,
		}
		for _, srcFile := range assigns[d.canon+"_SOURCES"] {
			if dir != "." {
				srcFile = dir + "/" + srcFile
			}
			target.Sources = append(target.Sources, srcFile)
		}
		linkVars := append(assigns[d.canon+"_LDADD"], assigns[d.canon+"_LIBADD"]...)
		for _, entry := range linkVars {
			switch {
			case strings.HasPrefix(entry, "-l"):
				dep := buildsys.Dependency{
					Name:   buildsys.NormalizeName(strings.TrimPrefix(entry, "-l")),
					Origin: buildsys.OriginSystem,
				}
				target.ExternalDeps = append(target.ExternalDeps, dep)
				g.AddDependency(dep)
			case strings.HasSuffix(entry, ".la") || strings.HasSuffix(entry, ".a"):
				base := filepath.Base(entry)
				target.InternalDeps = append(target.InternalDeps, stripExt(base))
			case strings.HasPrefix(entry, "$("):
				// Substituted link flags (e.g. $(ZLIB_LIBS)) already surface
				// through PKG_CHECK_MODULES in configure.ac.
			}
		}
		g.AddTarget(target)
	}
}

// amCanonical converts a target name to its Makefile.am variable prefix:
// every character outside [A-Za-z0-9_] becomes an underscore.
func amCanonical(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func stripM4Quotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	return strings.TrimSpace(s)
}

func stripComment(s string) string {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	return s
}

func isConstraintOp(s string) bool {
	switch s {
	case ">=", "<=", "=", "==", "!=", ">", "<":
		return true
	}
	return false
}
