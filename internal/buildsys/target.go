package buildsys

// TargetKind distinguishes buildable unit types.
type TargetKind string

const (
	// TargetBinary is an executable target
	TargetBinary TargetKind = "binary"
	// TargetLibrary is a library target
	TargetLibrary TargetKind = "library"
)

// Target is one buildable unit declared by a build system.
//
// Target names are unique within a single build system's graph. The same name
// may appear under two different build systems; those are independent build
// definitions and are never deduplicated against each other.
type Target struct {
	Name         string       `json:"name"`
	Kind         TargetKind   `json:"kind"`
	Sources      []string     `json:"sources,omitempty"`
	InternalDeps []string     `json:"internalDeps,omitempty"`
	ExternalDeps []Dependency `json:"externalDeps,omitempty"`
	BuildSystem  Kind         `json:"buildSystem"`
}

// Key returns the deduplication key for the target: (build system, name).
func (t Target) Key() string {
	return string(t.BuildSystem) + "\x00" + t.Name
}
