package integrity

import (
	"path/filepath"
	"testing"

	"github.com/blackwell-systems/phasegate/internal/artifact"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("hello"))
	b := Fingerprint([]byte("hello"))
	c := Fingerprint([]byte("hello!"))

	if a != b {
		t.Error("fingerprint should be deterministic")
	}
	if a == c {
		t.Error("different content should fingerprint differently")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestValidate(t *testing.T) {
	reg, err := artifact.NewDirRegistry(filepath.Join(t.TempDir(), "artifacts"))
	if err != nil {
		t.Fatalf("NewDirRegistry failed: %v", err)
	}
	if err := reg.Write("a.conf", []byte("alpha")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := reg.Write("b.conf", []byte("beta")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	t.Run("all match", func(t *testing.T) {
		expected := map[string]string{
			"a.conf": Fingerprint([]byte("alpha")),
			"b.conf": Fingerprint([]byte("beta")),
		}
		result, err := Validate(expected, reg)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if !result.Valid || len(result.Mismatches) != 0 {
			t.Errorf("expected clean validation, got %+v", result)
		}
	})

	t.Run("content mismatch", func(t *testing.T) {
		expected := map[string]string{
			"a.conf": Fingerprint([]byte("alpha")),
			"b.conf": Fingerprint([]byte("something else")),
		}
		result, err := Validate(expected, reg)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if result.Valid {
			t.Error("validation should have failed")
		}
		if len(result.Mismatches) != 1 || result.Mismatches[0] != "b.conf" {
			t.Errorf("expected mismatch on b.conf, got %v", result.Mismatches)
		}
	})

	t.Run("unreadable artifact counts as mismatch", func(t *testing.T) {
		expected := map[string]string{
			"missing.conf": Fingerprint([]byte("gone")),
		}
		result, err := Validate(expected, reg)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if result.Valid || len(result.Mismatches) != 1 {
			t.Errorf("expected mismatch for missing artifact, got %+v", result)
		}
	})

	t.Run("mismatches sorted", func(t *testing.T) {
		expected := map[string]string{
			"z.conf": "bad",
			"a.conf": "bad",
			"m.conf": "bad",
		}
		result, err := Validate(expected, reg)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		want := []string{"a.conf", "m.conf", "z.conf"}
		if len(result.Mismatches) != 3 {
			t.Fatalf("expected 3 mismatches, got %v", result.Mismatches)
		}
		for i := range want {
			if result.Mismatches[i] != want[i] {
				t.Errorf("expected %v, got %v", want, result.Mismatches)
				break
			}
		}
	})

	t.Run("nil registry", func(t *testing.T) {
		if _, err := Validate(map[string]string{}, nil); err == nil {
			t.Error("expected error for nil registry")
		}
	})
}
