package execute

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"bde/internal/buildsys"
	"bde/internal/logging"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests drive /bin/sh")
	}
}

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	skipWithoutShell(t)

	result, err := NewExecRunner(logging.Discard()).Run(context.Background(), Request{
		Command:     "sh",
		Args:        []string{"-c", "echo out; echo err >&2; exit 3"},
		BuildSystem: buildsys.KindCMake,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", result.ExitCode)
	}
	if result.Succeeded() {
		t.Error("nonzero exit must not report success")
	}
	if strings.TrimSpace(result.Stdout) != "out" {
		t.Errorf("stdout capture wrong: %q", result.Stdout)
	}
	if strings.TrimSpace(result.Stderr) != "err" {
		t.Errorf("stderr capture wrong: %q", result.Stderr)
	}
	if result.BuildSystem != buildsys.KindCMake {
		t.Errorf("build system not carried into the result: %q", result.BuildSystem)
	}
	if result.Platform != runtime.GOOS {
		t.Errorf("expected platform %s, got %s", runtime.GOOS, result.Platform)
	}
}

func TestRunEnvReachesProcess(t *testing.T) {
	skipWithoutShell(t)

	result, err := NewExecRunner(logging.Discard()).Run(context.Background(), Request{
		Command: "sh",
		Args:    []string{"-c", "echo $BDE_TEST_VAR"},
		Env:     map[string]string{"BDE_TEST_VAR": "wired"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "wired" {
		t.Errorf("env var not passed through: %q", result.Stdout)
	}
}

func TestRunMissingCommand(t *testing.T) {
	result, err := NewExecRunner(logging.Discard()).Run(context.Background(), Request{
		Command: "definitely-not-a-real-command-bde",
	})
	if err != nil {
		t.Fatalf("a missing command is diagnosis input, not an error: %v", err)
	}
	if result.ExitCode != 127 {
		t.Errorf("expected conventional exit code 127, got %d", result.ExitCode)
	}
	if result.Stderr == "" {
		t.Error("start failure must be visible in stderr")
	}
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	skipWithoutShell(t)

	start := time.Now()
	_, err := NewExecRunner(logging.Discard()).Run(context.Background(), Request{
		Command: "sh",
		Args:    []string{"-c", "sleep 30"},
		Timeout: 100 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected a context error on timeout")
	}
	if time.Since(start) > 10*time.Second {
		t.Error("process was not killed on timeout")
	}
}

func TestRunTruncatesOutputAtCaptureLimit(t *testing.T) {
	skipWithoutShell(t)

	result, err := NewExecRunner(logging.Discard()).Run(context.Background(), Request{
		Command:      "sh",
		Args:         []string{"-c", "yes x | head -c 4096"},
		CaptureLimit: 1024,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.HasSuffix(result.Stdout, TruncationMarker) {
		t.Error("truncated output must end with the marker")
	}
	if len(result.Stdout) > 1024+len(TruncationMarker) {
		t.Errorf("capture exceeds the limit: %d bytes", len(result.Stdout))
	}
}

func TestCapWriterBelowLimitUntouched(t *testing.T) {
	w := newCapWriter(16)
	if _, err := w.Write([]byte("short")); err != nil {
		t.Fatal(err)
	}
	if w.String() != "short" {
		t.Errorf("output below the cap must be untouched, got %q", w.String())
	}
}

func TestCapWriterExactBoundary(t *testing.T) {
	w := newCapWriter(4)
	if _, err := w.Write([]byte("abcd")); err != nil {
		t.Fatal(err)
	}
	if w.String() != "abcd" {
		t.Errorf("exactly at the cap must not truncate, got %q", w.String())
	}
	if _, err := w.Write([]byte("e")); err != nil {
		t.Fatal(err)
	}
	if w.String() != "abcd"+TruncationMarker {
		t.Errorf("write past the cap must append the marker once, got %q", w.String())
	}
}
