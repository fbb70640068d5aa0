package execute

import (
	"time"

	"bde/internal/buildsys"
)

// BuildResult is the captured outcome of one build invocation. It is
// immutable once constructed: diagnosis reads it, nothing mutates it, and
// the engine does not retain it past one diagnose cycle.
type BuildResult struct {
	Command     string        `json:"command"`
	Args        []string      `json:"args,omitempty"`
	Dir         string        `json:"dir,omitempty"`
	ExitCode    int           `json:"exitCode"`
	Stdout      string        `json:"stdout,omitempty"`
	Stderr      string        `json:"stderr,omitempty"`
	Duration    time.Duration `json:"duration"`
	BuildSystem buildsys.Kind `json:"buildSystem,omitempty"`
	Platform    string        `json:"platform"`
	StartedAt   time.Time     `json:"startedAt"`
}

// Succeeded reports whether the build exited cleanly.
func (r *BuildResult) Succeeded() bool {
	return r.ExitCode == 0
}
