// Package config resolves the filesystem locations phasegate uses for
// state and configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds every resolved location the engine touches.
type Paths struct {
	// StateDir is the root of all mutable state (default ~/.phasegate).
	StateDir string

	DBPath      string // snapshot index, audit log, phase state
	SnapshotDir string // snapshot payload files
	ArtifactDir string // default directory-backed artifact registry
	EStopMarker string // present if and only if the latch is engaged
	PIDFile     string // monitor daemon PID
	LogFile     string // monitor daemon log

	// ConfigDir is the operator-maintained configuration directory,
	// respecting XDG_CONFIG_HOME (default ~/.config/phasegate).
	ConfigDir     string
	TriggerConfig string // triggers.yaml
	ProfilePath   string // profile.yaml capability profile
}

// Resolve builds the path set. An empty stateDir uses ~/.phasegate. The
// state directory is created; the config directory is only resolved, not
// created, since missing config files fall back to defaults.
func Resolve(stateDir string) (*Paths, error) {
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".phasegate")
	}

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	configDir, err := configDir()
	if err != nil {
		return nil, err
	}

	return &Paths{
		StateDir:      stateDir,
		DBPath:        filepath.Join(stateDir, "phasegate.db"),
		SnapshotDir:   filepath.Join(stateDir, "snapshots"),
		ArtifactDir:   filepath.Join(stateDir, "artifacts"),
		EStopMarker:   filepath.Join(stateDir, "estop.json"),
		PIDFile:       filepath.Join(stateDir, "monitor.pid"),
		LogFile:       filepath.Join(stateDir, "monitor.log"),
		ConfigDir:     configDir,
		TriggerConfig: filepath.Join(configDir, "triggers.yaml"),
		ProfilePath:   filepath.Join(configDir, "profile.yaml"),
	}, nil
}

// configDir returns the phasegate config directory, respecting
// XDG_CONFIG_HOME. Defaults to ~/.config/phasegate.
func configDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "phasegate"), nil
}
