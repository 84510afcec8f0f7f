package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	estopClearYes bool

	estopCmd = &cobra.Command{
		Use:   "emergency-stop",
		Short: "Inspect or clear the emergency-stop latch",
	}

	estopStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show whether the emergency stop is engaged",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			marker, err := eng.latch.Status()
			if err != nil {
				return err
			}
			if marker == nil {
				fmt.Println("Emergency stop is not engaged.")
				return nil
			}

			fmt.Printf("Emergency stop ENGAGED since %s\n", marker.Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Printf("  Reason:           %s\n", marker.Reason)
			fmt.Printf("  Last known phase: %d\n", marker.LastKnownPhase)
			fmt.Println("All phase transitions are refused until it is cleared.")
			return nil
		},
	}

	estopClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Clear the emergency stop (operator action)",
		Long: `Clear disengages the emergency-stop latch. Nothing in the engine does
this automatically: clearing asserts that an operator has investigated
the failure that engaged it and judged the system safe to transition
again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			marker, err := eng.latch.Status()
			if err != nil {
				return err
			}
			if marker == nil {
				return fmt.Errorf("emergency stop is not engaged")
			}

			if !estopClearYes {
				fmt.Printf("Engaged since %s: %s\n", marker.Timestamp.Format("2006-01-02 15:04:05"), marker.Reason)
				if !confirm("Clear the emergency stop?") {
					fmt.Println("Emergency stop left engaged.")
					return nil
				}
			}

			if err := eng.latch.Disengage(); err != nil {
				return err
			}

			fmt.Println("Emergency stop cleared. Phase transitions are permitted again.")
			return nil
		},
	}
)

func init() {
	estopClearCmd.Flags().BoolVarP(&estopClearYes, "yes", "y", false, "skip confirmation prompt")

	estopCmd.AddCommand(estopStatusCmd)
	estopCmd.AddCommand(estopClearCmd)
	RootCmd.AddCommand(estopCmd)
}
