package buildsys

import "strings"

// Origin describes where an external dependency comes from.
type Origin string

const (
	// OriginSystem is a dependency satisfied by a system package
	OriginSystem Origin = "system"
	// OriginVendored is a dependency built from sources vendored in the tree
	OriginVendored Origin = "vendored"
	// OriginFetched is a dependency downloaded by the build system itself
	OriginFetched Origin = "fetched"
)

// Dependency is an external requirement of a target.
//
// Constraints is an alternative-constraint list: when the same dependency is
// declared with different version constraints across build systems, every
// constraint is retained and none is resolved. Conflict resolution is left
// to the caller.
type Dependency struct {
	Name        string   `json:"name"`
	Constraints []string `json:"constraints,omitempty"`
	Optional    bool     `json:"optional,omitempty"`
	Origin      Origin   `json:"origin"`
}

// NormalizeName lowercases and trims a dependency name. Namespaced CMake
// imported targets such as ZLIB::ZLIB collapse to their package name.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, "::"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// Key returns the deduplication key for the dependency: (normalized name, origin).
func (d Dependency) Key() string {
	return d.Name + "\x00" + string(d.Origin)
}
