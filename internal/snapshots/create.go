package snapshots

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/phasegate/internal/integrity"
	"github.com/blackwell-systems/phasegate/internal/store"
)

// Capture creates an immutable checkpoint of the current configuration and
// capability state for the given phase: every tracked artifact is read
// verbatim into the payload and fingerprinted, the capability profile is
// recorded, and the snapshot is indexed by id and phase.
//
// Capture holds the store's exclusivity gate for its duration; a capture
// attempted while another capture, prune, or rollback runs is rejected
// with store.ErrBusy. Any unreadable artifact fails the whole capture with
// a CaptureError and nothing is indexed.
func (m *Manager) Capture(phase int, description string) (*store.Snapshot, error) {
	release, err := m.store.AcquireExclusive()
	if err != nil {
		return nil, err
	}
	defer release()

	return m.capture(phase, description)
}

// capture is Capture without the gate, for callers that already hold it.
func (m *Manager) capture(phase int, description string) (*store.Snapshot, error) {
	if err := os.MkdirAll(m.snapshotDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	profile, err := m.profile.Profile()
	if err != nil {
		return nil, &CaptureError{Err: fmt.Errorf("failed to read capability profile: %w", err)}
	}

	names, err := m.registry.Names()
	if err != nil {
		return nil, &CaptureError{Err: fmt.Errorf("failed to enumerate tracked artifacts: %w", err)}
	}

	data := &Data{
		CreatedAt:           time.Now(),
		Phase:               phase,
		Description:         description,
		ComponentVersions:   profile.ComponentVersions,
		EnabledCapabilities: profile.EnabledCapabilities,
		ConfigBackup:        make(map[string][]byte, len(names)),
		Fingerprints:        make(map[string]string, len(names)),
		EngineVersion:       EngineVersion,
	}

	for _, name := range names {
		content, err := m.registry.Read(name)
		if err != nil {
			return nil, &CaptureError{Artifact: name, Err: err}
		}
		data.ConfigBackup[name] = content
		data.Fingerprints[name] = integrity.Fingerprint(content)
	}

	// Filename: phase plus a nanosecond timestamp, so captures in the same
	// second never collide.
	filename := fmt.Sprintf("phase%d-%s.json", phase, data.CreatedAt.Format("2006-01-02-150405.000000000"))
	snapshotPath := filepath.Join(m.snapshotDir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot data: %w", err)
	}

	if err := os.WriteFile(snapshotPath, jsonData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write snapshot file: %w", err)
	}

	snapshotID, err := m.store.InsertSnapshot(phase, description, len(names), snapshotPath)
	if err != nil {
		// Keep the index authoritative: a payload without an index row must
		// not linger on disk.
		os.Remove(snapshotPath)
		return nil, fmt.Errorf("failed to index snapshot: %w", err)
	}

	return m.store.GetSnapshot(snapshotID)
}

// Load reads and parses the payload file of an indexed snapshot.
func (m *Manager) Load(snap *store.Snapshot) (*Data, error) {
	raw, err := os.ReadFile(snap.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot JSON: %w", err)
	}

	return &data, nil
}
