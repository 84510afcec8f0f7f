package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/phasegate/internal/output"
	"github.com/blackwell-systems/phasegate/internal/store"
)

var (
	rollbackTo     int
	rollbackReason string
	rollbackYes    bool

	rollbackCmd = &cobra.Command{
		Use:   "rollback",
		Short: "Restore a prior phase from its snapshot",
		Long: `Rollback restores the most recent snapshot of the target phase and
commits the phase machine back to it. The target must be strictly below
the current phase.

Every attempt is recorded in the audit log (see 'phasegate history'). A
failed restore engages the emergency stop and is never retried
automatically. A rollback attempted while a capture or another rollback
is running is rejected rather than queued.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rollbackReason == "" {
				return fmt.Errorf("--reason is required: every rollback is audited with its cause")
			}

			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			ctrl, err := eng.controller()
			if err != nil {
				return err
			}

			target := rollbackTo
			if target == 0 {
				target = ctrl.Current() - 1
			}

			if !rollbackYes {
				prompt := fmt.Sprintf("Roll back from phase %d to phase %d?", ctrl.Current(), target)
				if !confirm(prompt) {
					fmt.Println("Rollback cancelled.")
					return nil
				}
			}

			spinner := output.NewSpinner(fmt.Sprintf("Rolling back to phase %d", target))
			spinner.Start()
			op, err := ctrl.RequestRollback(target, rollbackReason, store.InitiatorOperator)
			spinner.Stop()
			if err != nil {
				if op != nil {
					fmt.Printf("Rollback operation %s failed; see 'phasegate history'.\n", op.ID)
				}
				return err
			}

			fmt.Printf("Rolled back to phase %d (operation %s)\n", target, op.ID)
			return nil
		},
	}
)

func init() {
	rollbackCmd.Flags().IntVar(&rollbackTo, "to", 0, "target phase (default: current - 1)")
	rollbackCmd.Flags().StringVar(&rollbackReason, "reason", "", "reason recorded in the audit log (required)")
	rollbackCmd.Flags().BoolVarP(&rollbackYes, "yes", "y", false, "skip confirmation prompt")
	RootCmd.AddCommand(rollbackCmd)
}
