// Package rollback orchestrates restoration of a target snapshot: load,
// validate, apply, re-validate, and record the attempt in the audit log.
package rollback

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blackwell-systems/phasegate/internal/artifact"
	"github.com/blackwell-systems/phasegate/internal/integrity"
	"github.com/blackwell-systems/phasegate/internal/snapshots"
	"github.com/blackwell-systems/phasegate/internal/store"
)

// ErrRestoreFailed marks a rollback in which one or more artifacts failed
// to apply, or post-apply re-validation found mismatches. The caller must
// escalate to the emergency stop; the executor never retries on its own.
var ErrRestoreFailed = errors.New("rollback failed to restore one or more artifacts")

// Executor restores snapshots. Only one execution may run at a time
// system-wide; the store's exclusivity gate enforces that against both a
// second rollback and a concurrent snapshot capture.
type Executor struct {
	store    *store.Store
	snaps    *snapshots.Manager
	registry artifact.Registry
	log      *zap.Logger
}

// New creates a rollback Executor. A nil logger disables logging.
func New(st *store.Store, snaps *snapshots.Manager, reg artifact.Registry, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		store:    st,
		snaps:    snaps,
		registry: reg,
		log:      logger,
	}
}

// Execute restores the snapshot with the given id and returns the audit
// record of the attempt. The sequence is:
//
//  1. load the snapshot (store.ErrNotFound if absent)
//  2. pre-validate fingerprints; mismatches are logged, not blocking,
//     since the payload being applied is itself the source of truth
//  3. apply each config payload, continuing past per-artifact failures
//  4. re-validate post-apply
//  5. conclude the audit record; success requires a clean re-validation
//
// A concurrent Execute (or capture, or prune) is rejected with
// store.ErrBusy. On failure the returned error wraps ErrRestoreFailed and
// the caller must engage the emergency stop.
func (e *Executor) Execute(snapshotID int64, reason, initiator string) (*store.RollbackOperation, error) {
	release, err := e.store.AcquireExclusive()
	if err != nil {
		return nil, err
	}
	defer release()

	snap, err := e.snaps.GetByID(snapshotID)
	if err != nil {
		return nil, err
	}

	data, err := e.snaps.Load(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %d: %w", snapshotID, err)
	}

	// Pre-check: advisory only. Divergence here is exactly why a rollback
	// is running.
	if pre, err := integrity.Validate(data.Fingerprints, e.registry); err == nil && !pre.Valid {
		e.log.Warn("integrity mismatch before restore",
			zap.Int64("snapshot_id", snapshotID),
			zap.Strings("mismatches", pre.Mismatches),
		)
	}

	op := &store.RollbackOperation{
		ID:               uuid.NewString(),
		StartedAt:        time.Now(),
		TargetSnapshotID: snapshotID,
		Reason:           reason,
		Initiator:        initiator,
	}
	if err := e.store.InsertRollbackOperation(op); err != nil {
		return nil, err
	}

	e.log.Info("rollback started",
		zap.String("operation_id", op.ID),
		zap.Int64("snapshot_id", snapshotID),
		zap.Int("target_phase", snap.Phase),
		zap.String("reason", reason),
		zap.String("initiator", initiator),
	)

	affected, notes := e.apply(data)

	// Re-validate everything the snapshot fingerprints. Artifacts that
	// failed to write are already counted; a mismatch on an artifact that
	// claimed to apply means the restore did not take effect.
	post, err := integrity.Validate(data.Fingerprints, e.registry)
	if err != nil {
		notes = append(notes, fmt.Sprintf("post-restore validation error: %v", err))
	} else {
		for _, name := range post.Mismatches {
			if !contains(affected, name) {
				affected = append(affected, name)
				notes = append(notes, fmt.Sprintf("%s: content mismatch after restore", name))
			}
		}
	}

	success := err == nil && len(affected) == 0

	op.Success = success
	op.AffectedComponents = affected
	op.DataLossNotes = strings.Join(notes, "; ")
	if err := e.store.ConcludeRollbackOperation(op.ID, success, affected, op.DataLossNotes); err != nil {
		return op, err
	}
	now := time.Now()
	op.ConcludedAt = &now

	if !success {
		e.log.Error("rollback failed",
			zap.String("operation_id", op.ID),
			zap.Strings("affected_components", affected),
		)
		return op, fmt.Errorf("rollback operation %s: %w", op.ID, ErrRestoreFailed)
	}

	e.log.Info("rollback completed",
		zap.String("operation_id", op.ID),
		zap.Int("restored_phase", snap.Phase),
		zap.Int("artifacts", len(data.ConfigBackup)),
	)
	return op, nil
}

// apply writes every config payload back to its artifact, one at a time,
// continuing on failure. It returns the artifacts that failed and the
// matching data-loss notes.
func (e *Executor) apply(data *snapshots.Data) (affected []string, notes []string) {
	names := make([]string, 0, len(data.ConfigBackup))
	for name := range data.ConfigBackup {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := e.registry.Write(name, data.ConfigBackup[name]); err != nil {
			affected = append(affected, name)
			notes = append(notes, fmt.Sprintf("%s: %v", name, err))
			e.log.Warn("artifact restore failed",
				zap.String("artifact", name),
				zap.Error(err),
			)
		}
	}
	return affected, notes
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
