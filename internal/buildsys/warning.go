package buildsys

import "fmt"

// ParseWarning records a non-fatal problem encountered while parsing a build
// file. A single malformed file degrades to a partial graph plus a warning;
// it never fails the whole analysis.
type ParseWarning struct {
	BuildSystem Kind   `json:"buildSystem"`
	File        string `json:"file,omitempty"`
	Line        int    `json:"line,omitempty"`
	Message     string `json:"message"`
}

func (w ParseWarning) String() string {
	prefix := ""
	if w.BuildSystem != "" {
		prefix = fmt.Sprintf("[%s] ", w.BuildSystem)
	}
	if w.File == "" {
		return prefix + w.Message
	}
	if w.Line > 0 {
		return fmt.Sprintf("%s%s:%d: %s", prefix, w.File, w.Line, w.Message)
	}
	return fmt.Sprintf("%s%s: %s", prefix, w.File, w.Message)
}
