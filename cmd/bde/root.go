package main

import (
	"github.com/spf13/cobra"

	"bde/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "bde",
	Short: "BDE - Build Dependency & Diagnostics Engine",
	Long: `BDE (Build Dependency & Diagnostics Engine) analyzes C/C++ project trees
across build systems (CMake, Meson, SCons, Autotools, Bazel), merges their
declared dependencies into one normalized graph, and diagnoses build
failures against a declarative registry of known issues with bounded
automatic remediation.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("BDE version {{.Version}}\n")
}
