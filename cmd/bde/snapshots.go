package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bde/internal/storage"
)

var (
	snapshotsFormat string
	snapshotsLimit  int
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage persisted analysis snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List snapshots for a project, newest first",
	RunE:  runSnapshotsList,
}

var snapshotsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one snapshot with its full graph",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsShow,
}

var snapshotsPruneCmd = &cobra.Command{
	Use:   "prune [path]",
	Short: "Delete every snapshot for a project",
	RunE:  runSnapshotsPrune,
}

func init() {
	snapshotsListCmd.Flags().StringVar(&snapshotsFormat, "format", "json", "Output format (json, human)")
	snapshotsListCmd.Flags().IntVarP(&snapshotsLimit, "limit", "n", 20, "Maximum snapshots to list")
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsShowCmd)
	snapshotsCmd.AddCommand(snapshotsPruneCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	logger := newLogger(snapshotsFormat)
	root := mustResolveRoot(args)

	db, err := storage.Open(root, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	snaps, err := db.ListSnapshots(root, snapshotsLimit)
	if err != nil {
		return err
	}

	if snapshotsFormat == "human" {
		if len(snaps) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}
		for _, s := range snaps {
			fmt.Printf("%s  %s  systems=%d\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), len(s.Systems))
		}
		return nil
	}
	return outputJSON(snaps)
}

func runSnapshotsShow(cmd *cobra.Command, args []string) error {
	logger := newLogger("json")
	root := mustResolveRoot(nil)

	db, err := storage.Open(root, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	snap, err := db.GetSnapshot(args[0])
	if err != nil {
		return err
	}
	return outputJSON(snap)
}

func runSnapshotsPrune(cmd *cobra.Command, args []string) error {
	logger := newLogger("human")
	root := mustResolveRoot(args)

	db, err := storage.Open(root, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := db.DeleteSnapshots(root)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d snapshots.\n", deleted)
	return nil
}
