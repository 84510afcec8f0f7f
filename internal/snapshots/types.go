package snapshots

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/phasegate/internal/artifact"
	"github.com/blackwell-systems/phasegate/internal/store"
)

// EngineVersion is recorded into every snapshot payload for compatibility
// tracking across engine upgrades.
const EngineVersion = "0.3.0"

// Data is the JSON structure stored in snapshot payload files. Snapshots
// are immutable once written; nothing edits a payload file after capture.
type Data struct {
	CreatedAt           time.Time
	Phase               int
	Description         string
	ComponentVersions   map[string]string
	EnabledCapabilities []string
	ConfigBackup        map[string][]byte
	Fingerprints        map[string]string
	EngineVersion       string
}

// CaptureError reports a snapshot that could not be fully captured.
// Partial captures are never indexed: either every tracked artifact made
// it into the payload, or the capture failed as a whole.
type CaptureError struct {
	Artifact string // empty when the failure was not tied to one artifact
	Err      error
}

func (e *CaptureError) Error() string {
	if e.Artifact != "" {
		return fmt.Sprintf("snapshot capture failed on artifact %s: %v", e.Artifact, e.Err)
	}
	return fmt.Sprintf("snapshot capture failed: %v", e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Manager manages snapshot capture, lookup, loading, and retention pruning.
type Manager struct {
	store       *store.Store
	registry    artifact.Registry
	profile     artifact.ProfileProvider
	snapshotDir string
}

// New creates a new snapshot Manager.
func New(st *store.Store, reg artifact.Registry, prof artifact.ProfileProvider, snapshotDir string) *Manager {
	return &Manager{
		store:       st,
		registry:    reg,
		profile:     prof,
		snapshotDir: snapshotDir,
	}
}

// GetByID returns the index row for a snapshot id, or store.ErrNotFound.
func (m *Manager) GetByID(id int64) (*store.Snapshot, error) {
	return m.store.GetSnapshot(id)
}

// GetByPhase returns the most recent snapshot for a phase, or
// store.ErrNotFound.
func (m *Manager) GetByPhase(phase int) (*store.Snapshot, error) {
	return m.store.GetSnapshotByPhase(phase)
}

// Phases returns the phase numbers currently held, ascending.
func (m *Manager) Phases() ([]int, error) {
	return m.store.SnapshotPhases()
}

// List returns all snapshot index rows, oldest first.
func (m *Manager) List() ([]*store.Snapshot, error) {
	return m.store.ListSnapshots()
}

// LatestFingerprints returns the fingerprint map of the newest snapshot,
// or store.ErrNotFound when no snapshot exists. The drift trigger source
// compares live artifact content against these.
func (m *Manager) LatestFingerprints() (map[string]string, error) {
	snaps, err := m.store.ListSnapshots()
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, store.ErrNotFound
	}

	data, err := m.Load(snaps[len(snaps)-1])
	if err != nil {
		return nil, err
	}
	return data.Fingerprints, nil
}
