package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bde/internal/buildsys"
	"bde/internal/diagnose"
	"bde/internal/execute"
)

var (
	diagnoseFormat        string
	diagnoseAuto          bool
	diagnoseMaxAttempts   int
	diagnoseMinConfidence float64
	diagnoseRegistryPath  string
	diagnoseSystem        string
	diagnoseTimeout       time.Duration
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [path] -- <build command> [args...]",
	Short: "Run a build and match failures against the issue registry",
	Long: `Run the given build command, capture its output and match any failure
against the known-issue registry. With --auto, safe workarounds from the
best match are applied and the build is retried, bounded by --max-attempts
and a tried-issue guard so remediation can never loop.

Examples:
  bde diagnose -- make -j4
  bde diagnose path/to/project -- ninja -C build
  bde diagnose --auto --max-attempts 2 -- make
  bde diagnose --registry issues.yaml --build-system cmake -- cmake --build build`,
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().StringVar(&diagnoseFormat, "format", "json", "Output format (json, human)")
	diagnoseCmd.Flags().BoolVar(&diagnoseAuto, "auto", false, "Apply safe workarounds automatically and rebuild")
	diagnoseCmd.Flags().IntVar(&diagnoseMaxAttempts, "max-attempts", 0, "Maximum automatic remediation cycles (0 = config default)")
	diagnoseCmd.Flags().Float64Var(&diagnoseMinConfidence, "min-confidence", 0, "Minimum match confidence (0-1, 0 = config default)")
	diagnoseCmd.Flags().StringVar(&diagnoseRegistryPath, "registry", "", "Issue registry document (overrides config)")
	diagnoseCmd.Flags().StringVar(&diagnoseSystem, "build-system", "", "Build system producing the failure (cmake, meson, scons, autotools, bazel)")
	diagnoseCmd.Flags().DurationVar(&diagnoseTimeout, "timeout", 0, "Per-build timeout (0 = config default)")
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	logger := newLogger(diagnoseFormat)

	dash := cmd.ArgsLenAtDash()
	if dash < 0 || dash == len(args) {
		return fmt.Errorf("no build command given; usage: bde diagnose [path] -- <build command>")
	}
	build := args[dash:]
	root := mustResolveRoot(args[:dash])
	cfg := loadConfig(root, logger)

	var kind buildsys.Kind
	if diagnoseSystem != "" {
		parsed, err := buildsys.ParseKind(diagnoseSystem)
		if err != nil {
			return err
		}
		kind = parsed
	}

	timeout := diagnoseTimeout
	if timeout == 0 && cfg.Build.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Build.TimeoutSeconds) * time.Second
	}

	runner := execute.NewExecRunner(logger)
	request := execute.Request{
		Command:      build[0],
		Args:         build[1:],
		Dir:          root,
		Timeout:      timeout,
		BuildSystem:  kind,
		CaptureLimit: cfg.Build.CaptureLimitBytes,
	}

	ctx := newContext()
	result, err := runner.Run(ctx, request)
	if err != nil {
		return fmt.Errorf("build interrupted: %w", err)
	}
	if result.Succeeded() {
		fmt.Println("Build succeeded; nothing to diagnose.")
		return nil
	}

	opts := diagnose.Options{
		Registry:      loadRegistry(root, cfg, diagnoseRegistryPath, logger),
		Root:          root,
		MinConfidence: diagnoseMinConfidence,
		AutoApply:     diagnoseAuto || cfg.Diagnostics.AutoApply,
		MaxAttempts:   diagnoseMaxAttempts,
		Rebuild: func(ctx context.Context, env map[string]string) (*execute.BuildResult, error) {
			req := request
			req.Env = env
			return runner.Run(ctx, req)
		},
	}
	if opts.MinConfidence == 0 {
		opts.MinConfidence = cfg.Diagnostics.MinConfidence
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = cfg.Diagnostics.MaxAttempts
	}

	session, err := diagnose.NewEngine(logger, runner).Diagnose(ctx, result, opts)
	if err != nil {
		return err
	}

	if diagnoseFormat == "human" {
		printDiagnosisHuman(session)
		return nil
	}
	return outputJSON(session)
}

func printDiagnosisHuman(session *diagnose.DiagnosisResult) {
	fmt.Printf("Session: %s\n", session.SessionID)
	if session.Fixed {
		fmt.Println("Result: fixed")
	} else {
		fmt.Printf("Result: unresolved (%s)\n", session.Reason)
	}

	if len(session.Matches) > 0 {
		fmt.Println("\nMatched issues:")
		for _, m := range session.Matches {
			fmt.Printf("  %.2f  %s  %s\n", m.Confidence, m.Issue.ID, m.Issue.Title)
		}
	}
	if len(session.Applied) > 0 {
		fmt.Println("\nApplied workarounds:")
		for _, a := range session.Applied {
			line := fmt.Sprintf("  [%s] %s: %s", a.Outcome, a.IssueID, a.Description)
			if a.Error != "" {
				line += " (" + a.Error + ")"
			}
			fmt.Println(line)
			if a.BackupPath != "" {
				fmt.Printf("         backup: %s\n", a.BackupPath)
			}
		}
	}
	if len(session.Suggested) > 0 {
		fmt.Println("\nSuggested next steps:")
		for _, w := range session.Suggested {
			fmt.Printf("  (%s) %s\n", w.Action, w.Description)
		}
	}
	fmt.Printf("\nBuild attempts: %d\n", len(session.Attempts))
}
