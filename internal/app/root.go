package app

import (
	"github.com/spf13/cobra"
)

var (
	stateDir string
	verbose  bool

	// RootCmd is the root command for phasegate
	RootCmd = &cobra.Command{
		Use:   "phasegate",
		Short: "Phase snapshot and rollback engine for capability-gated systems",
		Long: `phasegate checkpoints a system's full configuration and capability
state before any capability upgrade ("phase advance"), and reverts to a
prior checkpoint, automatically or on demand, when the new state proves
unsafe or unstable.

Every phase transition gets a before/after snapshot pair. Snapshots are
fingerprinted (SHA-256) so divergence between expected and actual state is
detectable, and a failed restore engages an emergency stop that blocks all
further transitions until an operator clears it.

Quick Start:
  1. phasegate init                      # establish the phase-1 baseline
  2. phasegate monitor --daemon          # start health monitoring
  3. phasegate advance                   # move to the next phase
  4. phasegate rollback --to 1 --reason "regression"

Features:
  • Append-only snapshot index with per-artifact SHA-256 fingerprints
  • Declarative health triggers (warn / rollback / emergency-stop)
  • Filesystem watch for out-of-band artifact drift
  • Audit log of every restoration attempt
  • Emergency-stop latch cleared only by explicit operator action

Examples:
  # Show current phase and latch state
  phasegate status

  # Capture a snapshot of the current phase
  phasegate snapshot create --description "before tuning"

  # Review the restoration audit log
  phasegate history

  # Clear the emergency stop after investigation
  phasegate emergency-stop clear`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "state directory (default: ~/.phasegate)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose engine logging to stderr")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
