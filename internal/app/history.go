package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/phasegate/internal/output"
)

var (
	historyLimit int

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show the rollback audit log",
		Long: `History lists every restoration attempt, newest first: when it
started, which snapshot it targeted, who initiated it, and whether it
succeeded. A pending entry belongs to a rollback that never concluded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			ops, err := eng.store.ListRollbackOperations(historyLimit)
			if err != nil {
				return err
			}

			fmt.Print(output.RenderOperationTable(ops))
			return nil
		},
	}
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to show (0 for all)")
	RootCmd.AddCommand(historyCmd)
}
