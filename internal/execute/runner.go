// Package execute runs external build commands with bounded output capture.
package execute

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"bde/internal/buildsys"
	"bde/internal/logging"
)

// DefaultCaptureLimit bounds stdout/stderr capture per stream.
const DefaultCaptureLimit = 256 * 1024

// TruncationMarker is appended to a captured stream once the cap is reached.
const TruncationMarker = "\n...[output truncated]"

// exitCommandNotFound is the conventional shell exit code for a missing
// command; used when the process cannot be started at all.
const exitCommandNotFound = 127

// Request describes one build invocation.
type Request struct {
	Command      string
	Args         []string
	Dir          string
	Env          map[string]string // merged over the current environment
	Timeout      time.Duration     // zero means no timeout
	BuildSystem  buildsys.Kind
	CaptureLimit int // bytes per stream; zero means DefaultCaptureLimit
}

// Runner executes build commands. The single production implementation is
// ExecRunner; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, req Request) (*BuildResult, error)
}

// ExecRunner runs commands through os/exec. A failing build is expected
// input for diagnosis, so command failures are captured inside the
// BuildResult rather than returned as errors; the error return is reserved
// for context cancellation.
type ExecRunner struct {
	logger *logging.Logger
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(logger *logging.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

// Run executes the request. Cancelling ctx kills the underlying process.
func (r *ExecRunner) Run(ctx context.Context, req Request) (*BuildResult, error) {
	limit := req.CaptureLimit
	if limit <= 0 {
		limit = DefaultCaptureLimit
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, req.Command, req.Args...)
	cmd.Dir = req.Dir

	env := os.Environ()
	for k, v := range req.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = env

	stdout := newCapWriter(limit)
	stderr := newCapWriter(limit)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started := time.Now()
	err := cmd.Run()
	duration := time.Since(started)

	result := &BuildResult{
		Command:     req.Command,
		Args:        req.Args,
		Dir:         req.Dir,
		Stdout:      stdout.String(),
		Stderr:      stderr.String(),
		Duration:    duration,
		BuildSystem: req.BuildSystem,
		Platform:    runtime.GOOS,
		StartedAt:   started,
	}

	switch {
	case err == nil:
		result.ExitCode = 0
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// Start failure: command missing or not executable. Expected
			// input for diagnosis, never fatal.
			result.ExitCode = exitCommandNotFound
			if result.Stderr == "" {
				result.Stderr = err.Error()
			}
		}
	}

	r.logger.Debug("Build command finished", map[string]interface{}{
		"command":  req.Command,
		"exitCode": result.ExitCode,
		"duration": duration.String(),
	})

	if ctxErr := runCtx.Err(); ctxErr != nil {
		// Killed by cancellation or timeout; the partial capture is still
		// returned so the attempt history stays accurate.
		return result, ctxErr
	}
	return result, nil
}

// capWriter captures up to limit bytes and appends TruncationMarker once
// past the cap, so a runaway build cannot grow memory unboundedly.
type capWriter struct {
	buf       []byte
	limit     int
	truncated bool
}

func newCapWriter(limit int) *capWriter {
	return &capWriter{limit: limit}
}

func (w *capWriter) Write(p []byte) (int, error) {
	if w.truncated {
		return len(p), nil
	}
	remaining := w.limit - len(w.buf)
	if remaining <= 0 {
		w.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf = append(w.buf, p[:remaining]...)
		w.truncated = true
		return len(p), nil
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *capWriter) String() string {
	if w.truncated {
		return string(w.buf) + TruncationMarker
	}
	return string(w.buf)
}
