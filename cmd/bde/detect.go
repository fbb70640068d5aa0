package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bde/internal/analyzer"
)

var detectFormat string

var detectCmd = &cobra.Command{
	Use:   "detect [path]",
	Short: "Show build system detection candidates",
	Long: `Run detection only and list every build system candidate with its
confidence, ordered by confidence descending. No parsing happens.

Examples:
  bde detect
  bde detect path/to/project --format human`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringVar(&detectFormat, "format", "json", "Output format (json, human)")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	logger := newLogger(detectFormat)
	root := mustResolveRoot(args)

	detections := analyzer.New(logger).DetectAll(root)

	if detectFormat == "human" {
		if len(detections) == 0 {
			fmt.Println("No build system detected.")
			return nil
		}
		for _, d := range detections {
			fmt.Printf("%-10s %.2f\n", d.Kind, d.Confidence)
		}
		return nil
	}
	return outputJSON(detections)
}
