package buildsys

import "sort"

// Graph is the normalized result of parsing one or more build systems.
//
// The external dependency set is deduplicated by (name, origin). Merging two
// graphs is associative, commutative and idempotent: targets and dependencies
// are unioned, and conflicting version constraints for the same dependency
// are concatenated onto its alternative-constraint list, never resolved.
type Graph struct {
	Targets      []Target       `json:"targets"`
	Dependencies []Dependency   `json:"dependencies"`
	Systems      []Kind         `json:"systems"`
	Warnings     []ParseWarning `json:"warnings,omitempty"`
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// AddSystem records a detected build system kind, once.
func (g *Graph) AddSystem(k Kind) {
	for _, existing := range g.Systems {
		if existing == k {
			return
		}
	}
	g.Systems = append(g.Systems, k)
}

// AddTarget adds a target, ignoring exact duplicates of (build system, name).
// The first declaration wins; a redeclaration within one build system is the
// parser's responsibility to warn about.
func (g *Graph) AddTarget(t Target) {
	key := t.Key()
	for _, existing := range g.Targets {
		if existing.Key() == key {
			return
		}
	}
	g.Targets = append(g.Targets, t)
}

// AddDependency adds an external dependency, merging by (name, origin).
// Constraint lists are concatenated and textually deduplicated; the optional
// flag only stays set when every declaration marked the dependency optional.
func (g *Graph) AddDependency(d Dependency) {
	d.Name = NormalizeName(d.Name)
	key := d.Key()
	for i := range g.Dependencies {
		if g.Dependencies[i].Key() == key {
			g.Dependencies[i].Constraints = unionStrings(g.Dependencies[i].Constraints, d.Constraints)
			g.Dependencies[i].Optional = g.Dependencies[i].Optional && d.Optional
			return
		}
	}
	g.Dependencies = append(g.Dependencies, d)
}

// AddWarning appends a parse warning.
func (g *Graph) AddWarning(w ParseWarning) {
	g.Warnings = append(g.Warnings, w)
}

// Merge unions other into g per the graph merge invariants.
func (g *Graph) Merge(other *Graph) {
	if other == nil {
		return
	}
	for _, k := range other.Systems {
		g.AddSystem(k)
	}
	for _, t := range other.Targets {
		g.AddTarget(t)
	}
	for _, d := range other.Dependencies {
		g.AddDependency(d)
	}
	for _, w := range other.Warnings {
		exists := false
		for _, have := range g.Warnings {
			if have == w {
				exists = true
				break
			}
		}
		if !exists {
			g.Warnings = append(g.Warnings, w)
		}
	}
}

// MergeGraphs returns a fresh graph that is the union of all inputs.
func MergeGraphs(graphs ...*Graph) *Graph {
	merged := NewGraph()
	for _, g := range graphs {
		merged.Merge(g)
	}
	merged.Normalize()
	return merged
}

// Normalize sorts every collection in the graph so that two graphs built from
// the same inputs in any order compare field-equal. Parsers and the analyzer
// call this before returning; callers comparing graphs should rely on it.
func (g *Graph) Normalize() {
	sort.Slice(g.Systems, func(i, j int) bool { return g.Systems[i] < g.Systems[j] })
	sort.Slice(g.Targets, func(i, j int) bool { return g.Targets[i].Key() < g.Targets[j].Key() })
	for i := range g.Targets {
		t := &g.Targets[i]
		sort.Strings(t.Sources)
		sort.Strings(t.InternalDeps)
		sort.Slice(t.ExternalDeps, func(a, b int) bool { return t.ExternalDeps[a].Key() < t.ExternalDeps[b].Key() })
		for j := range t.ExternalDeps {
			sort.Strings(t.ExternalDeps[j].Constraints)
		}
	}
	sort.Slice(g.Dependencies, func(i, j int) bool { return g.Dependencies[i].Key() < g.Dependencies[j].Key() })
	for i := range g.Dependencies {
		sort.Strings(g.Dependencies[i].Constraints)
	}
	sort.Slice(g.Warnings, func(i, j int) bool {
		a, b := g.Warnings[i], g.Warnings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Message < b.Message
	})
}

// unionStrings concatenates b onto a, dropping textual duplicates while
// preserving first-seen order. Ordering is canonicalized later by Normalize.
func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
