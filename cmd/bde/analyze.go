package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bde/internal/analyzer"
	"bde/internal/buildsys"
	"bde/internal/export"
	"bde/internal/storage"
)

var (
	analyzeFormat        string
	analyzeMinConfidence float64
	analyzeSystems       []string
	analyzeSave          bool
	analyzeOutput        string
	analyzeGzip          bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Detect build systems and extract the dependency graph",
	Long: `Detect every build system in a project tree, parse all candidates and
merge the results into one normalized dependency graph.

Multiple build systems in one tree (e.g. a CMake project vendoring an
Autotools library) are all parsed; the ambiguity is reported as a warning,
not an error. Version constraint conflicts across build systems are kept
as alternative constraint lists, never resolved.

Examples:
  bde analyze
  bde analyze path/to/project
  bde analyze --system cmake --system meson
  bde analyze --min-confidence 0.5
  bde analyze --save
  bde analyze -o graph.json.gz`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "Output format (json, human)")
	analyzeCmd.Flags().Float64Var(&analyzeMinConfidence, "min-confidence", 0, "Minimum detection confidence (0-1, 0 = config default)")
	analyzeCmd.Flags().StringSliceVar(&analyzeSystems, "system", nil, "Restrict to specific build systems (can be repeated)")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Persist the graph as a snapshot in .bde/bde.db")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write the graph to a file (.gz compresses)")
	analyzeCmd.Flags().BoolVar(&analyzeGzip, "gzip", false, "Compress file output")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger := newLogger(analyzeFormat)
	root := mustResolveRoot(args)
	cfg := loadConfig(root, logger)

	opts := analyzer.Options{MinConfidence: analyzeMinConfidence}
	if opts.MinConfidence == 0 {
		opts.MinConfidence = cfg.Analyzer.MinConfidence
	}
	systems := analyzeSystems
	if len(systems) == 0 {
		systems = cfg.Analyzer.Systems
	}
	for _, name := range systems {
		kind, err := buildsys.ParseKind(name)
		if err != nil {
			return err
		}
		opts.Kinds = append(opts.Kinds, kind)
	}

	graph, err := analyzer.New(logger).Analyze(root, opts)
	if err != nil {
		return err
	}

	if analyzeSave && cfg.Storage.Enabled {
		db, err := storage.Open(root, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		id, err := db.SaveSnapshot(root, graph)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Snapshot saved: %s\n", id)
	}

	if analyzeOutput != "" {
		exp := export.NewExporter(logger)
		if err := exp.WriteFile(analyzeOutput, root, graph, export.Options{Gzip: analyzeGzip}); err != nil {
			return err
		}
	}

	if analyzeFormat == "human" {
		printGraphHuman(root, graph)
		return nil
	}
	return outputJSON(graph)
}

func printGraphHuman(root string, graph *buildsys.Graph) {
	fmt.Printf("Project: %s\n", root)

	names := make([]string, len(graph.Systems))
	for i, s := range graph.Systems {
		names[i] = string(s)
	}
	fmt.Printf("Build systems: %s\n\n", strings.Join(names, ", "))

	fmt.Printf("Targets (%d):\n", len(graph.Targets))
	for _, t := range graph.Targets {
		fmt.Printf("  %s (%s, %s)\n", t.Name, t.Kind, t.BuildSystem)
		for _, d := range t.ExternalDeps {
			fmt.Printf("    -> %s\n", d.Name)
		}
	}

	fmt.Printf("\nExternal dependencies (%d):\n", len(graph.Dependencies))
	for _, d := range graph.Dependencies {
		line := "  " + d.Name
		if len(d.Constraints) > 0 {
			line += " [" + strings.Join(d.Constraints, ", ") + "]"
		}
		if d.Optional {
			line += " (optional)"
		}
		fmt.Printf("%s (%s)\n", line, d.Origin)
	}

	if len(graph.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(graph.Warnings))
		for _, w := range graph.Warnings {
			fmt.Printf("  %s\n", w.String())
		}
	}
}
