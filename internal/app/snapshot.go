package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/phasegate/internal/output"
)

var (
	snapshotDescription string
	snapshotRetain      int

	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Manage configuration snapshots",
	}

	snapshotCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Capture a snapshot of the current phase",
		Long: `Create captures every tracked artifact and the capability profile
into an immutable, fingerprinted snapshot of the current phase.

The capture is all-or-nothing: if any artifact cannot be read, nothing is
indexed. A capture attempted while a rollback or prune is running is
rejected rather than queued.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			ctrl, err := eng.controller()
			if err != nil {
				return err
			}

			spinner := output.NewSpinner("Capturing snapshot")
			spinner.Start()
			snap, err := eng.snaps.Capture(ctrl.Current(), snapshotDescription)
			spinner.Stop()
			if err != nil {
				return err
			}

			fmt.Printf("Captured snapshot %d of phase %d (%d artifacts)\n",
				snap.ID, snap.Phase, snap.ArtifactCount)
			return nil
		},
	}

	snapshotListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			snaps, err := eng.snaps.List()
			if err != nil {
				return err
			}

			fmt.Print(output.RenderSnapshotTable(snaps))
			return nil
		},
	}

	snapshotPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Remove old snapshots beyond the retention count",
		Long: `Prune deletes the oldest snapshots until at most --retain remain.
Snapshots of the currently active phase are never removed, so the running
phase always keeps its reference checkpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			ctrl, err := eng.controller()
			if err != nil {
				return err
			}

			removed, err := eng.snaps.Prune(snapshotRetain, ctrl.Current())
			if err != nil {
				return err
			}

			if removed == 0 {
				fmt.Println("Nothing to prune.")
			} else {
				fmt.Printf("Pruned %d snapshot(s); retaining up to %d.\n", removed, snapshotRetain)
			}
			return nil
		},
	}
)

func init() {
	snapshotCreateCmd.Flags().StringVarP(&snapshotDescription, "description", "d", "", "snapshot description")
	snapshotPruneCmd.Flags().IntVar(&snapshotRetain, "retain", 10, "number of snapshots to keep")

	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotPruneCmd)
	RootCmd.AddCommand(snapshotCmd)
}
