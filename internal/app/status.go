package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/phasegate/internal/monitor"
	"github.com/blackwell-systems/phasegate/internal/phase"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show phase, emergency-stop, and monitor status",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		ctrl, err := eng.controller()
		if err != nil {
			if errors.Is(err, phase.ErrNotInitialized) {
				fmt.Println("Not initialized. Run 'phasegate init' to establish the phase-1 baseline.")
				return nil
			}
			return err
		}

		fmt.Printf("Current phase:   %d\n", ctrl.Current())
		fmt.Printf("Highest phase:   %d\n", ctrl.Highest())

		marker, err := eng.latch.Status()
		if err != nil {
			return err
		}
		if marker != nil {
			fmt.Printf("Emergency stop:  ENGAGED since %s\n", marker.Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Printf("  Reason:        %s\n", marker.Reason)
			fmt.Printf("  Last phase:    %d\n", marker.LastKnownPhase)
		} else {
			fmt.Println("Emergency stop:  clear")
		}

		running, err := monitor.IsDaemonRunning(eng.paths.PIDFile)
		if err != nil {
			return err
		}
		if running {
			fmt.Println("Monitor:         running")
		} else {
			fmt.Println("Monitor:         stopped")
		}

		snaps, err := eng.snaps.List()
		if err != nil {
			return err
		}
		phases, err := eng.snaps.Phases()
		if err != nil {
			return err
		}
		fmt.Printf("Snapshots:       %d across %d phase(s)\n", len(snaps), len(phases))

		return nil
	},
}

func init() {
	RootCmd.AddCommand(statusCmd)
}
