package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bde/internal/registry"
)

var registryFormat string

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and validate issue registry documents",
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a registry document",
	Long: `Load a YAML or TOML registry document and report every entry that would
be skipped or adjusted. Exits nonzero only when the document itself is
malformed or carries an unsupported schema version.

Examples:
  bde registry validate issues.yaml
  bde registry validate issues.toml`,
	Args: cobra.ExactArgs(1),
	RunE: runRegistryValidate,
}

var registryShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Show the issues in a registry document",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryShow,
}

func init() {
	registryShowCmd.Flags().StringVar(&registryFormat, "format", "json", "Output format (json, human)")
	registryCmd.AddCommand(registryValidateCmd)
	registryCmd.AddCommand(registryShowCmd)
	rootCmd.AddCommand(registryCmd)
}

func runRegistryValidate(cmd *cobra.Command, args []string) error {
	logger := newLogger("human")
	reg, warnings, err := registry.Load(args[0], logger)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	fmt.Printf("OK: %d issues loaded, %d warnings\n", reg.Len(), len(warnings))
	return nil
}

func runRegistryShow(cmd *cobra.Command, args []string) error {
	logger := newLogger(registryFormat)
	reg, _, err := registry.Load(args[0], logger)
	if err != nil {
		return err
	}

	if registryFormat == "human" {
		for _, issue := range reg.Issues {
			fmt.Printf("%s  [%s]  %s\n", issue.ID, issue.Severity, issue.Title)
			fmt.Printf("  signature clauses: %d, workarounds: %d\n", len(issue.Signature), len(issue.Workarounds))
		}
		return nil
	}
	return outputJSON(reg.Issues)
}
