package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/phasegate/internal/phase"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Establish the phase-1 baseline snapshot",
	Long: `Init captures the very first snapshot of the tracked configuration
artifacts and capability profile, and sets the phase machine to phase 1.

It refuses to run twice: an initialized state directory is never
re-baselined. Use 'phasegate snapshot create' for additional checkpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		snap, err := phase.Initialize(eng.store, eng.snaps)
		if err != nil {
			return err
		}

		fmt.Printf("Initialized at phase 1 (snapshot %d, %d artifacts)\n", snap.ID, snap.ArtifactCount)
		fmt.Printf("State directory: %s\n", eng.paths.StateDir)
		fmt.Printf("Tracked artifacts: %s\n", eng.registry.Root())
		return nil
	},
}

func init() {
	RootCmd.AddCommand(initCmd)
}
