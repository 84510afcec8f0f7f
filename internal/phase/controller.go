// Package phase owns the phase state machine: which capability tier is
// active, which transitions are legal, and what happens when a health
// trigger fires. One Controller instance is constructed per process and
// injected into whatever needs it; there is no package-global state.
package phase

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/blackwell-systems/phasegate/internal/estop"
	"github.com/blackwell-systems/phasegate/internal/monitor"
	"github.com/blackwell-systems/phasegate/internal/rollback"
	"github.com/blackwell-systems/phasegate/internal/snapshots"
	"github.com/blackwell-systems/phasegate/internal/store"
)

// ErrNotInitialized is returned when no phase state exists yet; run
// initialization to establish the phase-1 baseline first.
var ErrNotInitialized = errors.New("phase state not initialized; run 'phasegate init' first")

// ErrInvalidTarget marks an advance or rollback request whose target phase
// is not legal from the current phase.
var ErrInvalidTarget = errors.New("invalid target phase")

// BaselinePhase is the phase every system starts at.
const BaselinePhase = 1

// Controller mediates all phase-transition requests.
type Controller struct {
	store *store.Store
	snaps *snapshots.Manager
	exec  *rollback.Executor
	latch *estop.Latch
	log   *zap.Logger

	mu      sync.Mutex
	current int
	highest int
}

// New loads the persisted phase state and runs the startup recovery scan
// for interrupted rollbacks. It returns ErrNotInitialized when the phase
// machine has never been initialized.
func New(st *store.Store, snaps *snapshots.Manager, exec *rollback.Executor, latch *estop.Latch, logger *zap.Logger) (*Controller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	state, err := st.GetPhaseState()
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}

	c := &Controller{
		store:   st,
		snaps:   snaps,
		exec:    exec,
		latch:   latch,
		log:     logger,
		current: state.CurrentPhase,
		highest: state.HighestPhase,
	}

	engaged, err := exec.RecoverIncomplete(latch, state.CurrentPhase)
	if err != nil {
		return nil, err
	}
	if engaged {
		logger.Error("emergency stop engaged during startup recovery",
			zap.Int("last_known_phase", state.CurrentPhase),
		)
	}

	return c, nil
}

// Initialize establishes the phase machine at the baseline phase by
// capturing the very first snapshot. It refuses to run twice.
func Initialize(st *store.Store, snaps *snapshots.Manager) (*store.Snapshot, error) {
	if _, err := st.GetPhaseState(); err == nil {
		return nil, fmt.Errorf("phase state already initialized")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	snap, err := snaps.Capture(BaselinePhase, "baseline")
	if err != nil {
		return nil, err
	}

	if err := st.SetPhaseState(BaselinePhase, BaselinePhase); err != nil {
		return nil, err
	}

	return snap, nil
}

// Current returns the active phase number.
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Highest returns the highest phase the system has ever reached.
func (c *Controller) Highest() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highest
}

// Advance moves the phase machine up by exactly one phase. The sequence
// is: capture the pre-transition checkpoint of the current phase, commit
// the new phase, then capture the post-transition checkpoint, so every
// advance leaves a before/after snapshot pair. Any capture failure refuses the
// advance; a post-capture failure also rolls the phase commit back so the
// committed phase always has its checkpoint.
func (c *Controller) Advance(target int) error {
	if err := c.refuseWhileLocked(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if target != c.current+1 {
		return fmt.Errorf("advance target must be %d (current phase %d), got %d: %w",
			c.current+1, c.current, target, ErrInvalidTarget)
	}

	if _, err := c.snaps.Capture(c.current, fmt.Sprintf("pre-advance checkpoint of phase %d", c.current)); err != nil {
		return err
	}

	highest := c.highest
	if target > highest {
		highest = target
	}
	if err := c.store.SetPhaseState(target, highest); err != nil {
		return err
	}

	if _, err := c.snaps.Capture(target, fmt.Sprintf("post-advance checkpoint of phase %d", target)); err != nil {
		// Do not leave the committed phase without its reference snapshot.
		if revertErr := c.store.SetPhaseState(c.current, c.highest); revertErr != nil {
			return fmt.Errorf("post-advance capture failed (%v) and phase revert failed: %w", err, revertErr)
		}
		return fmt.Errorf("post-advance capture failed, advance reverted: %w", err)
	}

	c.current = target
	c.highest = highest

	c.log.Info("phase advanced",
		zap.Int("phase", target),
		zap.Int("highest_phase", highest),
	)
	return nil
}

// RequestRollback restores a prior snapshot and commits the phase machine
// back to its phase. The target must be strictly below the current phase
// and have a snapshot. Refused operations (busy, locked, not-found,
// illegal target) leave all state untouched; a restore failure engages
// the emergency stop and is never retried automatically.
func (c *Controller) RequestRollback(target int, reason, initiator string) (*store.RollbackOperation, error) {
	if err := c.refuseWhileLocked(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if target >= c.current {
		return nil, fmt.Errorf("rollback target must be below current phase %d, got %d: %w",
			c.current, target, ErrInvalidTarget)
	}

	snap, err := c.snaps.GetByPhase(target)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no snapshot exists for phase %d: %w", target, err)
	}
	if err != nil {
		return nil, err
	}

	op, err := c.exec.Execute(snap.ID, reason, initiator)
	if err != nil {
		if errors.Is(err, store.ErrBusy) || errors.Is(err, store.ErrNotFound) {
			return op, err
		}
		// Restore failure or unexpected executor failure: escalate. The
		// configuration may be partially applied and retrying against that
		// unknown state would compound the problem.
		engageReason := fmt.Sprintf("rollback to phase %d failed: %v", target, err)
		if engageErr := c.latch.Engage(engageReason, c.current); engageErr != nil {
			return op, fmt.Errorf("%v; additionally failed to engage emergency stop: %w", err, engageErr)
		}
		c.log.Error("emergency stop engaged after failed rollback",
			zap.Int("target_phase", target),
			zap.Error(err),
		)
		return op, err
	}

	if err := c.store.SetPhaseState(target, c.highest); err != nil {
		return op, err
	}
	c.current = target

	// A rollback to this snapshot has now been proven out.
	if err := c.store.MarkSnapshotValidated(snap.ID); err != nil {
		return op, err
	}

	c.log.Info("phase rolled back",
		zap.Int("phase", target),
		zap.String("reason", reason),
		zap.String("initiator", initiator),
	)
	return op, nil
}

// HandleTriggerEvent maps a fired trigger to its consequence: warn events
// are logged, rollback events roll back one phase as the system initiator,
// and emergency-stop events engage the latch without attempting rollback.
func (c *Controller) HandleTriggerEvent(ev monitor.TriggerEvent) error {
	switch ev.Action {
	case monitor.ActionWarn:
		c.log.Warn("health trigger warning",
			zap.String("trigger", ev.Trigger.Name),
			zap.String("kind", string(ev.Trigger.Kind)),
			zap.String("observed", ev.Observed),
		)
		return nil

	case monitor.ActionRollback:
		current := c.Current()
		if current <= BaselinePhase {
			c.log.Warn("rollback trigger fired at baseline phase; nothing to roll back to",
				zap.String("trigger", ev.Trigger.Name),
			)
			return nil
		}
		reason := fmt.Sprintf("%s trigger %s: %s", ev.Trigger.Kind, ev.Trigger.Name, ev.Observed)
		_, err := c.RequestRollback(current-1, reason, store.InitiatorSystem)
		if err != nil {
			if errors.Is(err, store.ErrBusy) || errors.Is(err, estop.ErrLocked) || errors.Is(err, store.ErrNotFound) {
				c.log.Warn("trigger-driven rollback refused", zap.Error(err))
				return nil
			}
			return err
		}
		return nil

	case monitor.ActionEmergencyStop:
		reason := fmt.Sprintf("%s trigger %s: %s", ev.Trigger.Kind, ev.Trigger.Name, ev.Observed)
		return c.latch.Engage(reason, c.Current())

	default:
		return fmt.Errorf("unknown trigger action %q", ev.Action)
	}
}

// refuseWhileLocked rejects mutating operations while the emergency stop
// is engaged.
func (c *Controller) refuseWhileLocked() error {
	engaged, err := c.latch.IsEngaged()
	if err != nil {
		return err
	}
	if engaged {
		return estop.ErrLocked
	}
	return nil
}
