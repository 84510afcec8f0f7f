package store

import "errors"

// ErrBusy is returned when a mutating operation (snapshot capture, prune,
// rollback execution) is already in progress. Callers are rejected rather
// than queued: a queued writer would observe the partially-applied state
// the exclusivity gate exists to hide.
var ErrBusy = errors.New("another snapshot or rollback operation is in progress")

// AcquireExclusive takes the store's mutating-operation gate. It returns a
// release function on success and ErrBusy if the gate is already held.
func (s *Store) AcquireExclusive() (release func(), err error) {
	if !s.opMu.TryLock() {
		return nil, ErrBusy
	}
	return s.opMu.Unlock, nil
}
