package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	advanceTo int

	advanceCmd = &cobra.Command{
		Use:   "advance",
		Short: "Advance the system to the next phase",
		Long: `Advance moves the phase machine up by exactly one phase. Before the
transition commits, a checkpoint of the current phase is captured; after
it commits, a checkpoint of the new phase is captured. Every advance
therefore leaves a before/after snapshot pair.

The advance is refused if either capture fails, or while the emergency
stop is engaged.`,
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

			target := advanceTo
			if target == 0 {
				target = ctrl.Current() + 1
			}

			if err := ctrl.Advance(target); err != nil {
				return err
			}

			fmt.Printf("Advanced to phase %d (highest reached: %d)\n", ctrl.Current(), ctrl.Highest())
			return nil
		},
	}
)

func init() {
	advanceCmd.Flags().IntVar(&advanceTo, "to", 0, "target phase (default: current + 1)")
	RootCmd.AddCommand(advanceCmd)
}
