package snapshots

import (
	"fmt"
	"os"
)

// Prune removes the oldest snapshots beyond retain, oldest first; that is
// the only permitted retention policy. Snapshots belonging to activePhase are
// never removed: the running phase keeps its reference checkpoint no
// matter how the retention math works out.
//
// Prune holds the same exclusivity gate as capture and rollback; it
// returns the number of snapshots removed.
func (m *Manager) Prune(retain int, activePhase int) (int, error) {
	if retain < 0 {
		return 0, fmt.Errorf("retain must be non-negative, got %d", retain)
	}

	release, err := m.store.AcquireExclusive()
	if err != nil {
		return 0, err
	}
	defer release()

	snaps, err := m.store.ListSnapshots()
	if err != nil {
		return 0, fmt.Errorf("failed to list snapshots: %w", err)
	}

	excess := len(snaps) - retain
	if excess <= 0 {
		return 0, nil
	}

	removed := 0
	for _, snap := range snaps { // oldest first
		if removed >= excess {
			break
		}
		if snap.Phase == activePhase {
			continue
		}

		if err := os.Remove(snap.SnapshotPath); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to delete snapshot file %s: %w", snap.SnapshotPath, err)
		}
		if err := m.store.DeleteSnapshot(snap.ID); err != nil {
			return removed, err
		}
		removed++
	}

	return removed, nil
}
