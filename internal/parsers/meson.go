package parsers

import (
	"regexp"
	"strings"

	"bde/internal/buildsys"
	"bde/internal/logging"
)

// Meson parses meson.build files through structural tokenization of the
// declarative calls (executable, library, dependency). Meson's scripting
// subset is not interpreted; constructs the tokenizer cannot follow are
// skipped with a warning.
type Meson struct {
	logger *logging.Logger
}

// NewMeson creates a Meson parser.
func NewMeson(logger *logging.Logger) *Meson {
	return &Meson{logger: logger}
}

// Kind identifies the build system this parser handles.
func (m *Meson) Kind() buildsys.Kind {
	return buildsys.KindMeson
}

// Detect checks for meson.build markers.
func (m *Meson) Detect(root string) float64 {
	return detectMarkers(root, []string{"meson.build"}, []string{"meson_options.txt", "meson.options"})
}

// mesonDepAssignRe captures `var = dependency('name', ...)` assignments so
// identifiers in a later dependencies: [...] kwarg can be resolved by name.
var mesonDepAssignRe = regexp.MustCompile(`(?m)^\s*([A-Za-z_]\w*)\s*=\s*dependency\s*\(\s*['"]([^'"]+)['"]`)

var mesonIdentRe = regexp.MustCompile(`[A-Za-z_]\w*`)

// Parse scans every meson.build under root.
func (m *Meson) Parse(root string) (*buildsys.Graph, error) {
	g := buildsys.NewGraph()
	g.AddSystem(buildsys.KindMeson)

	files := walkNamed(root, -1, []string{"meson.build"})
	for _, path := range files {
		src, ok := readWarn(g, buildsys.KindMeson, root, path)
		if !ok {
			continue
		}
		m.parseFile(g, root, path, src)
	}

	g.Normalize()
	return g, nil
}

func (m *Meson) parseFile(g *buildsys.Graph, root, path, src string) {
	file := relPath(root, path)

	depVars := make(map[string]string)
	for _, match := range mesonDepAssignRe.FindAllStringSubmatch(src, -1) {
		depVars[match[1]] = buildsys.NormalizeName(match[2])
	}

	calls, balanced := scanCalls(src)
	if !balanced {
		g.AddWarning(buildsys.ParseWarning{
			BuildSystem: buildsys.KindMeson,
			File:        file,
			Message:     "unbalanced parentheses; file parsed partially",
		})
	}

	for _, call := range calls {
		switch call.Name {
		case "dependency":
			m.dependency(g, call)
		case "executable":
			m.target(g, depVars, call, buildsys.TargetBinary, file)
		case "library", "shared_library", "static_library", "both_libraries":
			m.target(g, depVars, call, buildsys.TargetLibrary, file)
		}
	}
}

// dependency records a dependency('name', ...) call as an external
// dependency with its version constraints.
func (m *Meson) dependency(g *buildsys.Graph, call rawCall) {
	lits := mesonPositional(call.Args)
	if len(lits) == 0 {
		return
	}
	dep := buildsys.Dependency{
		Name:   buildsys.NormalizeName(lits[0]),
		Origin: buildsys.OriginSystem,
	}
	if v, ok := keywordValue(call.Args, "version", ':'); ok {
		dep.Constraints = stringLiterals(v)
	}
	if v, ok := keywordValue(call.Args, "required", ':'); ok {
		if strings.TrimSpace(v) == "false" {
			dep.Optional = true
		}
	}
	g.AddDependency(dep)
}

func (m *Meson) target(g *buildsys.Graph, depVars map[string]string, call rawCall, kind buildsys.TargetKind, file string) {
	positional := mesonPositional(call.Args)
	if len(positional) == 0 {
		g.AddWarning(buildsys.ParseWarning{
			BuildSystem: buildsys.KindMeson,
			File:        file,
			Line:        call.Line,
			Message:     call.Name + " call without a literal name skipped",
		})
		return
	}

	target := buildsys.Target{
		Name:        positional[0],
		Kind:        kind,
		Sources:     positional[1:],
		BuildSystem: buildsys.KindMeson,
	}

	if deps, ok := keywordValue(call.Args, "dependencies", ':'); ok {
		for _, name := range m.resolveDeps(g, depVars, deps, file, call.Line) {
			dep := buildsys.Dependency{Name: name, Origin: buildsys.OriginSystem}
			target.ExternalDeps = append(target.ExternalDeps, dep)
			g.AddDependency(dep)
		}
	}
	if links, ok := keywordValue(call.Args, "link_with", ':'); ok {
		for _, ident := range mesonIdentRe.FindAllString(links, -1) {
			target.InternalDeps = append(target.InternalDeps, ident)
		}
	}

	g.AddTarget(target)
}

// resolveDeps maps a dependencies: [...] kwarg value to dependency names.
// Identifiers resolve through tracked `var = dependency(...)` assignments;
// inline dependency('x') calls are taken literally; anything else is an
// unsupported construct and skipped with a warning.
func (m *Meson) resolveDeps(g *buildsys.Graph, depVars map[string]string, raw, file string, line int) []string {
	var names []string

	// Inline dependency('x') calls inside the list.
	inline, _ := scanCalls(raw)
	inlineSeen := false
	for _, c := range inline {
		if c.Name == "dependency" {
			if lits := mesonPositional(c.Args); len(lits) > 0 {
				names = append(names, buildsys.NormalizeName(lits[0]))
				inlineSeen = true
			}
		}
	}

	stripped := raw
	if inlineSeen {
		// Avoid re-reading inline call arguments as bare identifiers.
		for _, c := range inline {
			stripped = strings.Replace(stripped, c.Args, "", 1)
		}
	}
	for _, ident := range mesonIdentRe.FindAllString(stripped, -1) {
		if ident == "dependency" {
			continue
		}
		if name, ok := depVars[ident]; ok {
			names = append(names, name)
			continue
		}
		g.AddWarning(buildsys.ParseWarning{
			BuildSystem: buildsys.KindMeson,
			File:        file,
			Line:        line,
			Message:     "unresolved dependency reference " + ident + " skipped",
		})
	}
	return names
}

// mesonPositional returns the string literals appearing before the first
// top-level keyword argument.
func mesonPositional(raw string) []string {
	end := len(raw)
	depth := 0
	i := 0
	for i < len(raw) {
		c := raw[i]
		if c == '\'' || c == '"' {
			line := 0
			i = skipString(raw, i, &line)
			continue
		}
		switch c {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ':':
			if depth == 0 {
				// Back up over the keyword identifier.
				j := i - 1
				for j >= 0 && (raw[j] == ' ' || raw[j] == '\t' || raw[j] == '\n') {
					j--
				}
				for j >= 0 && isIdentChar(raw[j]) {
					j--
				}
				end = j + 1
				i = len(raw)
				continue
			}
		}
		i++
	}
	if end > len(raw) {
		end = len(raw)
	}
	return stringLiterals(raw[:end])
}
