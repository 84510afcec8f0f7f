package rollback

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/blackwell-systems/phasegate/internal/estop"
)

// RecoverIncomplete scans the audit log for rollback operations that never
// concluded. Such a row means the process died mid-rollback, leaving the
// configuration in an unknown intermediate state; each one is concluded as
// failed and the emergency stop is engaged before any new operation runs.
//
// It returns true when the latch was engaged by this scan.
func (e *Executor) RecoverIncomplete(latch *estop.Latch, lastKnownPhase int) (bool, error) {
	pending, err := e.store.FindUnconcludedOperations()
	if err != nil {
		return false, err
	}
	if len(pending) == 0 {
		return false, nil
	}

	for _, op := range pending {
		note := "process terminated before rollback concluded; configuration state unknown"
		if err := e.store.ConcludeRollbackOperation(op.ID, false, op.AffectedComponents, note); err != nil {
			return false, fmt.Errorf("failed to conclude interrupted rollback %s: %w", op.ID, err)
		}
		e.log.Error("interrupted rollback detected",
			zap.String("operation_id", op.ID),
			zap.Int64("snapshot_id", op.TargetSnapshotID),
		)
	}

	reason := fmt.Sprintf("interrupted rollback detected on startup (%d unconcluded operation(s))", len(pending))
	if err := latch.Engage(reason, lastKnownPhase); err != nil {
		return false, fmt.Errorf("failed to engage emergency stop after interrupted rollback: %w", err)
	}

	return true, nil
}
