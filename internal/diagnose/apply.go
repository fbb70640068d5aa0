package diagnose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bde/internal/errors"
	"bde/internal/execute"
	"bde/internal/logging"
	"bde/internal/paths"
	"bde/internal/registry"
)

// backupSuffix marks the pre-patch copy left next to a patched file.
const backupSuffix = ".bde.bak"

// applier executes workaround actions. Environment changes go into the
// session env map, which the rebuild inherits; nothing leaks into the
// engine's own process environment.
type applier struct {
	runner execute.Runner
	logger *logging.Logger
	root   string
	env    map[string]string
}

// apply runs one workaround and returns the backup path for patch-file
// actions. Non-automatic actions are never passed in here.
func (a *applier) apply(ctx context.Context, w *registry.Workaround) (string, error) {
	switch w.Action {
	case registry.ActionRunCommand:
		return "", a.runCommand(ctx, w)
	case registry.ActionSetEnvVar:
		if w.EnvName == "" {
			return "", errors.New(errors.WorkaroundApplyError, "set-env workaround without variable name", nil)
		}
		a.env[w.EnvName] = w.EnvValue
		a.logger.Debug("Environment variable set for rebuild", map[string]interface{}{
			"name": w.EnvName,
		})
		return "", nil
	case registry.ActionPatchFile:
		return a.patchFile(w)
	}
	return "", errors.New(errors.WorkaroundApplyError,
		fmt.Sprintf("action %q cannot be applied automatically", w.Action), nil)
}

func (a *applier) runCommand(ctx context.Context, w *registry.Workaround) error {
	if w.Command == "" {
		return errors.New(errors.WorkaroundApplyError, "run-command workaround without command", nil)
	}
	result, err := a.runner.Run(ctx, execute.Request{
		Command: w.Command,
		Args:    w.Args,
		Dir:     a.root,
		Env:     a.env,
	})
	if err != nil {
		return errors.New(errors.WorkaroundApplyError, "workaround command interrupted", err)
	}
	if !result.Succeeded() {
		return errors.New(errors.WorkaroundApplyError,
			fmt.Sprintf("workaround command %s exited with code %d", w.Command, result.ExitCode), nil)
	}
	return nil
}

// patchFile replaces every occurrence of Find with Replace in one file
// under the project root. The original is copied aside first and the new
// content lands via temp file and rename, so a crash mid-write cannot
// leave a half-patched file.
func (a *applier) patchFile(w *registry.Workaround) (string, error) {
	if w.File == "" || w.Find == "" {
		return "", errors.New(errors.WorkaroundApplyError, "patch-file workaround without file or find text", nil)
	}
	target, err := a.resolveInRoot(w.File)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return "", errors.New(errors.WorkaroundApplyError, fmt.Sprintf("failed to read patch target: %s", w.File), err)
	}
	content := string(data)
	if !strings.Contains(content, w.Find) {
		return "", errors.New(errors.WorkaroundApplyError,
			fmt.Sprintf("patch text not found in %s", w.File), nil)
	}

	info, err := os.Stat(target)
	if err != nil {
		return "", errors.New(errors.WorkaroundApplyError, fmt.Sprintf("failed to stat patch target: %s", w.File), err)
	}

	backup := target + backupSuffix
	if err := os.WriteFile(backup, data, info.Mode().Perm()); err != nil {
		return "", errors.New(errors.WorkaroundApplyError, fmt.Sprintf("failed to back up %s", w.File), err)
	}

	patched := strings.ReplaceAll(content, w.Find, w.Replace)
	tmp, err := os.CreateTemp(filepath.Dir(target), ".bde-patch-*")
	if err != nil {
		return backup, errors.New(errors.WorkaroundApplyError, "failed to create patch temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(patched); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return backup, errors.New(errors.WorkaroundApplyError, "failed to write patched content", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return backup, errors.New(errors.WorkaroundApplyError, "failed to write patched content", err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		os.Remove(tmpName)
		return backup, errors.New(errors.WorkaroundApplyError, "failed to set patch file mode", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return backup, errors.New(errors.WorkaroundApplyError, fmt.Sprintf("failed to replace %s", w.File), err)
	}

	a.logger.Info("File patched", map[string]interface{}{
		"file":   w.File,
		"backup": backup,
	})
	return backup, nil
}

// resolveInRoot joins a relative workaround path against the project root
// and rejects anything that escapes it.
func (a *applier) resolveInRoot(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", errors.New(errors.WorkaroundApplyError,
			fmt.Sprintf("patch target must be relative to the project root: %s", rel), nil)
	}
	target := filepath.Clean(filepath.Join(a.root, rel))
	if !paths.IsWithinRoot(target, a.root) {
		return "", errors.New(errors.WorkaroundApplyError,
			fmt.Sprintf("patch target escapes the project root: %s", rel), nil)
	}
	return target, nil
}
