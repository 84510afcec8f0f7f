// Package estop implements the terminal safety latch. While engaged, every
// phase transition is refused; only an explicit operator action clears it.
package estop

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// ErrLocked is returned by mutating phase operations while the latch is
// engaged.
var ErrLocked = errors.New("emergency stop is engaged; clear it before attempting phase transitions")

// Marker is the persisted record of an engaged latch. The marker file
// exists if and only if the latch is engaged.
type Marker struct {
	Timestamp      time.Time `json:"timestamp"`
	Reason         string    `json:"reason"`
	LastKnownPhase int       `json:"last_known_phase"`
}

// Latch is the emergency-stop latch backed by an on-disk marker file.
type Latch struct {
	path string
	mu   sync.Mutex
}

// New creates a latch whose marker lives at path.
func New(path string) *Latch {
	return &Latch{path: path}
}

// Engage sets the latch and persists the marker. Engaging an already
// engaged latch is a no-op: the original reason is preserved so the first
// failure is never papered over by later ones.
func (l *Latch) Engage(reason string, lastKnownPhase int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check emergency-stop marker: %w", err)
	}

	marker := Marker{
		Timestamp:      time.Now(),
		Reason:         reason,
		LastKnownPhase: lastKnownPhase,
	}

	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal emergency-stop marker: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write emergency-stop marker: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to persist emergency-stop marker: %w", err)
	}

	return nil
}

// IsEngaged reports whether the latch is engaged.
func (l *Latch) IsEngaged() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check emergency-stop marker: %w", err)
	}
	return true, nil
}

// Status returns the persisted marker, or nil when the latch is not
// engaged.
func (l *Latch) Status() (*Marker, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read emergency-stop marker: %w", err)
	}

	var marker Marker
	if err := json.Unmarshal(data, &marker); err != nil {
		return nil, fmt.Errorf("failed to parse emergency-stop marker: %w", err)
	}
	return &marker, nil
}

// Disengage clears the latch. This is a privileged, operator-initiated
// action; nothing in the engine calls it automatically. It fails loudly
// when the marker cannot be removed: a latch that looks clear but is not
// would be worse than one that refuses to clear.
func (l *Latch) Disengage() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("emergency stop is not engaged")
		}
		return fmt.Errorf("failed to check emergency-stop marker: %w", err)
	}

	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("failed to remove emergency-stop marker (latch remains engaged): %w", err)
	}
	return nil
}
