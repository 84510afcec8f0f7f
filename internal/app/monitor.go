package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blackwell-systems/phasegate/internal/monitor"
)

var (
	monitorDaemon      bool
	monitorDaemonChild bool
	monitorStop        bool
	monitorBudgetMB    uint64

	monitorCmd = &cobra.Command{
		Use:   "monitor",
		Short: "Run the health-trigger monitor",
		Long: `Monitor samples system health on a timer and acts on declared
triggers: warn, roll back one phase, or engage the emergency stop. It
also watches the tracked artifact directory for out-of-band changes and
treats confirmed divergence from the latest snapshot as drift.

Trigger thresholds are read from triggers.yaml in the config directory;
sensible defaults apply when the file is absent.

By default the monitor runs in the foreground until interrupted. Use
--daemon to run it in the background and --stop to stop a running
daemon.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.close()

			if monitorStop {
				if err := monitor.StopDaemon(eng.paths.PIDFile); err != nil {
					return err
				}
				fmt.Println("Monitor daemon stopped.")
				return nil
			}

			if monitorDaemon {
				// The child must monitor the same state directory.
				var extra []string
				if stateDir != "" {
					extra = append(extra, "--state-dir", stateDir)
				}
				if err := monitor.StartDaemon(eng.paths.PIDFile, eng.paths.LogFile, extra...); err != nil {
					return err
				}
				fmt.Printf("Monitor daemon started (log: %s)\n", eng.paths.LogFile)
				return nil
			}

			return runMonitor(eng, monitorDaemonChild)
		},
	}
)

// runMonitor wires the sampling loop to the phase controller and runs it
// until SIGTERM/SIGINT. In daemon-child mode the engine logs go to stdout,
// which the parent redirected to the monitor log file.
func runMonitor(eng *engine, daemonChild bool) error {
	logger := eng.log
	if daemonChild {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stdout"}
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to create daemon logger: %w", err)
		}
		defer logger.Sync()
	}

	ctrl, err := phaseControllerWithLogger(eng, logger)
	if err != nil {
		return err
	}

	cfg, err := monitor.LoadConfig(eng.paths.TriggerConfig)
	if err != nil {
		return err
	}

	metrics := monitor.NewRuntimeMetrics(monitorBudgetMB*1024*1024, 0)
	m, err := monitor.New(metrics, ctrl, cfg.SamplePeriod.Std(), logger)
	if err != nil {
		return err
	}
	for _, t := range cfg.Triggers {
		if err := m.RegisterTrigger(t); err != nil {
			return err
		}
	}

	// Drift detection compares touched artifacts against the latest
	// snapshot's fingerprints at poll time, so a rollback that rewrites
	// artifacts never reads as drift once its snapshot is the newest.
	lookup := func(name string) (string, bool) {
		fps, err := eng.snaps.LatestFingerprints()
		if err != nil {
			return "", false
		}
		fp, ok := fps[name]
		return fp, ok
	}
	drift, err := monitor.NewDriftSource(eng.registry, lookup, cfg.DriftAction, logger)
	if err != nil {
		return err
	}
	defer drift.Close()
	m.RegisterSource(drift)

	pidFile := ""
	if daemonChild {
		pidFile = eng.paths.PIDFile
	} else {
		fmt.Printf("Monitoring every %s (%d triggers). Press Ctrl+C to stop.\n",
			cfg.SamplePeriod.Std(), len(cfg.Triggers))
	}

	if err := monitor.RunDaemon(m, pidFile); err != nil {
		return err
	}

	if !daemonChild {
		fmt.Fprintln(os.Stderr, "Monitor stopped.")
	}
	return nil
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorDaemon, "daemon", false, "run the monitor as a background daemon")
	monitorCmd.Flags().BoolVar(&monitorDaemonChild, "daemon-child", false, "")
	monitorCmd.Flags().MarkHidden("daemon-child")
	monitorCmd.Flags().BoolVar(&monitorStop, "stop", false, "stop a running monitor daemon")
	monitorCmd.Flags().Uint64Var(&monitorBudgetMB, "memory-budget-mb", 512, "heap size treated as 100% memory usage")

	RootCmd.AddCommand(monitorCmd)
}
