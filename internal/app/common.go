package app

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/blackwell-systems/phasegate/internal/artifact"
	"github.com/blackwell-systems/phasegate/internal/config"
	"github.com/blackwell-systems/phasegate/internal/estop"
	"github.com/blackwell-systems/phasegate/internal/phase"
	"github.com/blackwell-systems/phasegate/internal/rollback"
	"github.com/blackwell-systems/phasegate/internal/snapshots"
	"github.com/blackwell-systems/phasegate/internal/store"
)

// engine bundles the wired components every command needs. Each command
// opens one, uses it, and closes it; nothing engine-scoped is global.
type engine struct {
	paths    *config.Paths
	store    *store.Store
	registry *artifact.DirRegistry
	snaps    *snapshots.Manager
	latch    *estop.Latch
	exec     *rollback.Executor
	log      *zap.Logger
}

// openEngine resolves paths, opens the database, and wires the snapshot
// manager, latch, and rollback executor together.
func openEngine() (*engine, error) {
	paths, err := config.Resolve(stateDir)
	if err != nil {
		return nil, err
	}

	st, err := store.New(paths.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}

	registry, err := artifact.NewDirRegistry(paths.ArtifactDir)
	if err != nil {
		st.Close()
		return nil, err
	}

	logger, err := newLogger()
	if err != nil {
		st.Close()
		return nil, err
	}

	profile := artifact.NewFileProfile(paths.ProfilePath)
	snaps := snapshots.New(st, registry, profile, paths.SnapshotDir)
	latch := estop.New(paths.EStopMarker)
	exec := rollback.New(st, snaps, registry, logger)

	return &engine{
		paths:    paths,
		store:    st,
		registry: registry,
		snaps:    snaps,
		latch:    latch,
		exec:     exec,
		log:      logger,
	}, nil
}

// controller loads the phase controller, which also runs the startup
// recovery scan for interrupted rollbacks.
func (e *engine) controller() (*phase.Controller, error) {
	return phase.New(e.store, e.snaps, e.exec, e.latch, e.log)
}

// phaseControllerWithLogger builds a controller (and a fresh rollback
// executor) against a specific logger, for the monitor daemon whose logs
// go to the monitor log file rather than the CLI logger.
func phaseControllerWithLogger(e *engine, logger *zap.Logger) (*phase.Controller, error) {
	exec := rollback.New(e.store, e.snaps, e.registry, logger)
	return phase.New(e.store, e.snaps, exec, e.latch, logger)
}

func (e *engine) close() {
	e.log.Sync()
	e.store.Close()
}

// newLogger returns the engine logger: a development logger on stderr
// with --verbose, otherwise a no-op logger so CLI output stays clean.
// The monitor daemon builds its own production logger instead.
func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// ExitCode maps an error to the process exit code: 0 success, 1 refused
// operation (busy, locked, not found, capture failure, illegal target),
// 2 internal failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var capture *snapshots.CaptureError
	switch {
	case errors.Is(err, store.ErrBusy),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, estop.ErrLocked),
		errors.Is(err, phase.ErrInvalidTarget),
		errors.Is(err, phase.ErrNotInitialized),
		errors.As(err, &capture):
		return 1
	default:
		return 2
	}
}
