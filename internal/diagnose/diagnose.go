package diagnose

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"bde/internal/execute"
	"bde/internal/logging"
	"bde/internal/registry"
)

// DefaultMaxAttempts bounds automatic remediation cycles per session.
const DefaultMaxAttempts = 3

// DefaultMinConfidence is the match threshold used when options leave it
// unset. Half the signature clauses must hold before a match is considered.
const DefaultMinConfidence = 0.5

// RebuildFunc re-runs the build after a workaround was applied. The env map
// carries variables set by set-env workarounds during this session.
type RebuildFunc func(ctx context.Context, env map[string]string) (*execute.BuildResult, error)

// Options controls one Diagnose call.
type Options struct {
	Registry *registry.Registry
	// Root is the project root; patch-file and run-command workarounds
	// operate inside it.
	Root string
	// Rebuild is required when AutoApply is set; without it the session
	// stops at suggestions.
	Rebuild       RebuildFunc
	MinConfidence float64
	AutoApply     bool
	// MaxAttempts bounds automatic remediation cycles. Zero applies
	// nothing; negative means DefaultMaxAttempts.
	MaxAttempts int
}

// Engine runs diagnosis sessions. Sessions for the same project root are
// serialized because patch-file workarounds mutate the tree.
type Engine struct {
	logger *logging.Logger
	runner execute.Runner

	mu    sync.Mutex
	roots map[string]*sync.Mutex
}

// NewEngine creates a diagnosis engine using the given runner for
// workaround commands.
func NewEngine(logger *logging.Logger, runner execute.Runner) *Engine {
	return &Engine{
		logger: logger,
		runner: runner,
		roots:  make(map[string]*sync.Mutex),
	}
}

func (e *Engine) rootLock(root string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.roots[root]
	if !ok {
		lock = &sync.Mutex{}
		e.roots[root] = lock
	}
	return lock
}

// Diagnose matches a failed build against the registry and, when allowed,
// applies workarounds and rebuilds until the build succeeds or the bounded
// loop terminates. Every applied workaround is recorded before its rebuild
// starts, so cancellation mid-rebuild still leaves an accurate history.
func (e *Engine) Diagnose(ctx context.Context, result *execute.BuildResult, opts Options) (*DiagnosisResult, error) {
	reg := opts.Registry
	if reg == nil {
		reg = registry.Empty()
	}
	minConf := opts.MinConfidence
	if minConf <= 0 {
		minConf = DefaultMinConfidence
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 0 {
		maxAttempts = DefaultMaxAttempts
	}

	if opts.Root != "" {
		lock := e.rootLock(opts.Root)
		lock.Lock()
		defer lock.Unlock()
	}

	session := &DiagnosisResult{
		SessionID: uuid.New().String(),
		Root:      opts.Root,
	}
	e.logger.Info("Diagnosis session started", map[string]interface{}{
		"sessionId":   session.SessionID,
		"root":        opts.Root,
		"autoApply":   opts.AutoApply,
		"maxAttempts": maxAttempts,
	})

	apply := &applier{
		runner: e.runner,
		logger: e.logger,
		root:   opts.Root,
		env:    make(map[string]string),
	}
	tried := make(map[string]bool)
	attempts := 0
	current := result

	for {
		if current.Succeeded() {
			session.Fixed = true
			session.Reason = "build succeeded"
			session.Attempts = append(session.Attempts, Attempt{
				Number: len(session.Attempts) + 1,
				Result: current,
			})
			break
		}

		matches := filterMatches(reg.MatchResult(current), minConf)
		session.Matches = matches
		session.Attempts = append(session.Attempts, Attempt{
			Number:  len(session.Attempts) + 1,
			Result:  current,
			Matches: matches,
		})

		if len(matches) == 0 {
			session.Unresolved = true
			session.Reason = "no known issue matched above the confidence threshold"
			break
		}

		top := matches[0]
		auto := top.Issue.FirstAutomatic(current.Platform)

		if !opts.AutoApply || auto == nil || opts.Rebuild == nil {
			session.Unresolved = true
			session.Reason = "matches found; automatic remediation not applicable"
			session.Suggested = top.Issue.Workarounds
			break
		}
		if tried[top.Issue.ID] {
			// The workaround was applied and the same issue matched again:
			// the remediation does not fix the cause. Stop rather than loop.
			session.Unresolved = true
			session.Reason = "issue " + top.Issue.ID + " re-matched after its workaround was applied"
			break
		}
		if attempts >= maxAttempts {
			session.Unresolved = true
			session.Reason = "attempt limit reached"
			break
		}

		record := AppliedWorkaround{
			IssueID:     top.Issue.ID,
			Description: auto.Description,
			Action:      auto.Action,
			AppliedAt:   time.Now().UTC(),
		}
		backup, err := apply.apply(ctx, auto)
		record.BackupPath = backup
		if err != nil {
			record.Outcome = OutcomeFailed
			record.Error = err.Error()
			session.Applied = append(session.Applied, record)
			session.Unresolved = true
			session.Reason = "workaround application failed"
			session.Suggested = top.Issue.Workarounds
			e.logger.Warn("Workaround application failed", map[string]interface{}{
				"sessionId": session.SessionID,
				"issueId":   top.Issue.ID,
				"error":     err.Error(),
			})
			break
		}

		tried[top.Issue.ID] = true
		attempts++
		record.Outcome = OutcomeApplied
		session.Applied = append(session.Applied, record)

		e.logger.Info("Workaround applied, rebuilding", map[string]interface{}{
			"sessionId": session.SessionID,
			"issueId":   top.Issue.ID,
			"attempt":   attempts,
		})

		rebuilt, err := opts.Rebuild(ctx, apply.env)
		if rebuilt != nil {
			current = rebuilt
		}
		if err != nil {
			if rebuilt != nil {
				session.Attempts = append(session.Attempts, Attempt{
					Number: len(session.Attempts) + 1,
					Result: rebuilt,
				})
			}
			session.Unresolved = true
			session.Reason = "rebuild interrupted"
			return session, err
		}
		if current.Succeeded() {
			session.Applied[len(session.Applied)-1].Outcome = OutcomeFixed
		}
	}

	e.logger.Info("Diagnosis session finished", map[string]interface{}{
		"sessionId": session.SessionID,
		"fixed":     session.Fixed,
		"applied":   len(session.Applied),
		"reason":    session.Reason,
	})
	return session, nil
}

func filterMatches(matches []registry.Match, minConf float64) []registry.Match {
	filtered := matches[:0:0]
	for _, m := range matches {
		if m.Confidence >= minConf {
			filtered = append(filtered, m)
		}
	}
	return filtered
}
