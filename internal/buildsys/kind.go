package buildsys

import "fmt"

// Kind identifies one supported build system dialect.
// The set is closed; extending it means adding a new parser.
type Kind string

const (
	// KindCMake is the CMake build system (CMakeLists.txt)
	KindCMake Kind = "cmake"
	// KindMeson is the Meson build system (meson.build)
	KindMeson Kind = "meson"
	// KindSCons is the SCons build system (SConstruct/SConscript)
	KindSCons Kind = "scons"
	// KindAutotools is the GNU Autotools build system (configure.ac/Makefile.am)
	KindAutotools Kind = "autotools"
	// KindBazel is the Bazel build system (BUILD/WORKSPACE)
	KindBazel Kind = "bazel"
)

// AllKinds returns every supported build system kind in canonical order.
func AllKinds() []Kind {
	return []Kind{KindCMake, KindMeson, KindSCons, KindAutotools, KindBazel}
}

// Valid reports whether k is a known build system kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCMake, KindMeson, KindSCons, KindAutotools, KindBazel:
		return true
	}
	return false
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown build system kind: %q", s)
	}
	return k, nil
}
