package parsers

import (
	"strings"

	"bde/internal/buildsys"
	"bde/internal/logging"
)

// SCons extracts targets from SConstruct/SConscript files.
//
// SCons build files are full Python programs. This parser does pattern-based
// extraction of Environment(), Program() and Library() call sites only and
// is inherently incomplete: dependencies constructed dynamically (loops,
// helper functions, computed names) are invisible to it.
type SCons struct {
	logger *logging.Logger
}

// NewSCons creates a SCons parser.
func NewSCons(logger *logging.Logger) *SCons {
	return &SCons{logger: logger}
}

// Kind identifies the build system this parser handles.
func (s *SCons) Kind() buildsys.Kind {
	return buildsys.KindSCons
}

// Detect checks for SConstruct/SConscript markers.
func (s *SCons) Detect(root string) float64 {
	return detectMarkers(root, []string{"SConstruct"}, []string{"SConscript"})
}

var sconsSourceExts = []string{".c", ".cc", ".cpp", ".cxx", ".C", ".s", ".asm"}

// Parse scans every SConstruct/SConscript under root.
func (s *SCons) Parse(root string) (*buildsys.Graph, error) {
	g := buildsys.NewGraph()
	g.AddSystem(buildsys.KindSCons)

	files := walkNamed(root, -1, []string{"SConstruct", "SConscript"})
	for _, path := range files {
		src, ok := readWarn(g, buildsys.KindSCons, root, path)
		if !ok {
			continue
		}
		s.parseFile(g, root, path, src)
	}

	g.Normalize()
	return g, nil
}

func (s *SCons) parseFile(g *buildsys.Graph, root, path, src string) {
	file := relPath(root, path)

	calls, balanced := scanCalls(src)
	if !balanced {
		g.AddWarning(buildsys.ParseWarning{
			BuildSystem: buildsys.KindSCons,
			File:        file,
			Message:     "unbalanced parentheses; file parsed partially",
		})
	}

	for _, call := range calls {
		// env.Program and bare Program both count; only the method name matters.
		name := call.Name
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}

		switch name {
		case "Environment":
			s.libs(g, nil, call.Args)
		case "Program":
			s.target(g, call, buildsys.TargetBinary, file)
		case "Library", "StaticLibrary", "SharedLibrary":
			s.target(g, call, buildsys.TargetLibrary, file)
		}
	}
}

func (s *SCons) target(g *buildsys.Graph, call rawCall, kind buildsys.TargetKind, file string) {
	lits := stringLiterals(call.Args)
	if len(lits) == 0 {
		g.AddWarning(buildsys.ParseWarning{
			BuildSystem: buildsys.KindSCons,
			File:        file,
			Line:        call.Line,
			Message:     call.Name + " call without literal arguments skipped",
		})
		return
	}

	target := buildsys.Target{
		Kind:        kind,
		BuildSystem: buildsys.KindSCons,
	}
	if isSConsSource(lits[0]) {
		// Program(['main.c', ...]) form: target named after the first source.
		target.Name = stripExt(lits[0])
		target.Sources = keepSources(lits)
	} else {
		target.Name = lits[0]
		target.Sources = keepSources(lits[1:])
	}

	s.libs(g, &target, call.Args)
	g.AddTarget(target)
}

// libs pulls LIBS=[...] keyword entries as external dependencies, attached
// to target when one is given and always recorded on the graph.
func (s *SCons) libs(g *buildsys.Graph, target *buildsys.Target, raw string) {
	v, ok := keywordValue(raw, "LIBS", '=')
	if !ok {
		return
	}
	for _, lib := range stringLiterals(v) {
		if lib == "" {
			continue
		}
		dep := buildsys.Dependency{
			Name:   buildsys.NormalizeName(strings.TrimPrefix(lib, "lib")),
			Origin: buildsys.OriginSystem,
		}
		g.AddDependency(dep)
		if target != nil {
			target.ExternalDeps = append(target.ExternalDeps, dep)
		}
	}
}

func isSConsSource(name string) bool {
	for _, ext := range sconsSourceExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func stripExt(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

func keepSources(lits []string) []string {
	var out []string
	for _, l := range lits {
		if isSConsSource(l) {
			out = append(out, l)
		}
	}
	return out
}
