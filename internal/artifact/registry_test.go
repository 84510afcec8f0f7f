package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirRegistry(t *testing.T) {
	reg, err := NewDirRegistry(filepath.Join(t.TempDir(), "artifacts"))
	if err != nil {
		t.Fatalf("NewDirRegistry failed: %v", err)
	}

	t.Run("write and read", func(t *testing.T) {
		if err := reg.Write("routing.json", []byte(`{"mode":"safe"}`)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		content, err := reg.Read("routing.json")
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if string(content) != `{"mode":"safe"}` {
			t.Errorf("unexpected content: %s", content)
		}
	})

	t.Run("names sorted and filtered", func(t *testing.T) {
		if err := reg.Write("alpha.conf", []byte("a")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		// Hidden files and subdirectories are not tracked.
		if err := os.WriteFile(filepath.Join(reg.Root(), ".hidden"), []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if err := os.Mkdir(filepath.Join(reg.Root(), "subdir"), 0755); err != nil {
			t.Fatalf("Mkdir failed: %v", err)
		}

		names, err := reg.Names()
		if err != nil {
			t.Fatalf("Names failed: %v", err)
		}
		want := []string{"alpha.conf", "routing.json"}
		if len(names) != len(want) {
			t.Fatalf("expected %v, got %v", want, names)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("expected %v, got %v", want, names)
				break
			}
		}
	})

	t.Run("write leaves no temp file", func(t *testing.T) {
		if err := reg.Write("beta.conf", []byte("b")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(reg.Root(), "beta.conf.tmp")); !os.IsNotExist(err) {
			t.Error("temp file left behind after write")
		}
	})

	t.Run("invalid names rejected", func(t *testing.T) {
		for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
			if _, err := reg.Read(name); err == nil {
				t.Errorf("Read(%q) should fail", name)
			}
			if err := reg.Write(name, []byte("x")); err == nil {
				t.Errorf("Write(%q) should fail", name)
			}
		}
	})

	t.Run("read missing artifact", func(t *testing.T) {
		if _, err := reg.Read("no-such-artifact"); err == nil {
			t.Error("expected error reading missing artifact")
		}
	})
}

func TestFileProfile(t *testing.T) {
	t.Run("missing file yields empty profile", func(t *testing.T) {
		prof := NewFileProfile(filepath.Join(t.TempDir(), "profile.yaml"))
		p, err := prof.Profile()
		if err != nil {
			t.Fatalf("Profile failed: %v", err)
		}
		if len(p.ComponentVersions) != 0 || len(p.EnabledCapabilities) != 0 {
			t.Errorf("expected empty profile, got %+v", p)
		}
	})

	t.Run("parses yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile.yaml")
		content := `component_versions:
  router: v2.1.0
  cache: v1.4.2
enabled_capabilities:
  - auto-scaling
  - external-calls
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}

		p, err := NewFileProfile(path).Profile()
		if err != nil {
			t.Fatalf("Profile failed: %v", err)
		}
		if p.ComponentVersions["router"] != "v2.1.0" {
			t.Errorf("unexpected router version: %q", p.ComponentVersions["router"])
		}
		if len(p.EnabledCapabilities) != 2 || p.EnabledCapabilities[0] != "auto-scaling" {
			t.Errorf("unexpected capabilities: %v", p.EnabledCapabilities)
		}
	})

	t.Run("invalid yaml fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile.yaml")
		if err := os.WriteFile(path, []byte("\t: not yaml"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if _, err := NewFileProfile(path).Profile(); err == nil {
			t.Error("expected parse error")
		}
	})
}
