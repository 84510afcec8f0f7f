package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Run("explicit state dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "state")
		paths, err := Resolve(dir)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		if paths.StateDir != dir {
			t.Errorf("expected state dir %s, got %s", dir, paths.StateDir)
		}
		if paths.DBPath != filepath.Join(dir, "phasegate.db") {
			t.Errorf("unexpected db path: %s", paths.DBPath)
		}
		if paths.SnapshotDir != filepath.Join(dir, "snapshots") {
			t.Errorf("unexpected snapshot dir: %s", paths.SnapshotDir)
		}
		if paths.EStopMarker != filepath.Join(dir, "estop.json") {
			t.Errorf("unexpected estop marker: %s", paths.EStopMarker)
		}

		// The state directory is created on resolve.
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("state dir not created: %v", err)
		}
	})

	t.Run("respects XDG_CONFIG_HOME", func(t *testing.T) {
		xdg := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", xdg)

		paths, err := Resolve(filepath.Join(t.TempDir(), "state"))
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if paths.ConfigDir != filepath.Join(xdg, "phasegate") {
			t.Errorf("unexpected config dir: %s", paths.ConfigDir)
		}
		if paths.TriggerConfig != filepath.Join(xdg, "phasegate", "triggers.yaml") {
			t.Errorf("unexpected trigger config: %s", paths.TriggerConfig)
		}
		if paths.ProfilePath != filepath.Join(xdg, "phasegate", "profile.yaml") {
			t.Errorf("unexpected profile path: %s", paths.ProfilePath)
		}
	})

	t.Run("default config dir without XDG", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skipf("no home directory: %v", err)
		}

		paths, err := Resolve(filepath.Join(t.TempDir(), "state"))
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if paths.ConfigDir != filepath.Join(home, ".config", "phasegate") {
			t.Errorf("unexpected config dir: %s", paths.ConfigDir)
		}
	})
}
