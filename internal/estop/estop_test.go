package estop

import (
	"path/filepath"
	"testing"
)

func newTestLatch(t *testing.T) *Latch {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "estop.json"))
}

func TestEngageAndStatus(t *testing.T) {
	latch := newTestLatch(t)

	engaged, err := latch.IsEngaged()
	if err != nil {
		t.Fatalf("IsEngaged failed: %v", err)
	}
	if engaged {
		t.Fatal("fresh latch should not be engaged")
	}

	marker, err := latch.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if marker != nil {
		t.Fatal("fresh latch should have no marker")
	}

	if err := latch.Engage("rollback to phase 1 failed", 2); err != nil {
		t.Fatalf("Engage failed: %v", err)
	}

	engaged, err = latch.IsEngaged()
	if err != nil {
		t.Fatalf("IsEngaged failed: %v", err)
	}
	if !engaged {
		t.Fatal("latch should be engaged")
	}

	marker, err = latch.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if marker == nil {
		t.Fatal("engaged latch should have a marker")
	}
	if marker.Reason != "rollback to phase 1 failed" {
		t.Errorf("unexpected reason: %q", marker.Reason)
	}
	if marker.LastKnownPhase != 2 {
		t.Errorf("unexpected last known phase: %d", marker.LastKnownPhase)
	}
	if marker.Timestamp.IsZero() {
		t.Error("marker timestamp should be set")
	}
}

func TestEngagePreservesFirstReason(t *testing.T) {
	latch := newTestLatch(t)

	if err := latch.Engage("first failure", 3); err != nil {
		t.Fatalf("Engage failed: %v", err)
	}
	// Re-engaging must not overwrite the original cause.
	if err := latch.Engage("second failure", 4); err != nil {
		t.Fatalf("re-Engage failed: %v", err)
	}

	marker, err := latch.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if marker.Reason != "first failure" {
		t.Errorf("expected original reason preserved, got %q", marker.Reason)
	}
	if marker.LastKnownPhase != 3 {
		t.Errorf("expected original phase preserved, got %d", marker.LastKnownPhase)
	}
}

func TestDisengage(t *testing.T) {
	latch := newTestLatch(t)

	// Disengaging a clear latch is an error: the operator thought it was
	// engaged when it was not.
	if err := latch.Disengage(); err == nil {
		t.Fatal("expected error disengaging a clear latch")
	}

	if err := latch.Engage("test", 1); err != nil {
		t.Fatalf("Engage failed: %v", err)
	}
	if err := latch.Disengage(); err != nil {
		t.Fatalf("Disengage failed: %v", err)
	}

	engaged, err := latch.IsEngaged()
	if err != nil {
		t.Fatalf("IsEngaged failed: %v", err)
	}
	if engaged {
		t.Error("latch should be clear after disengage")
	}

	// The latch can be engaged again after clearing.
	if err := latch.Engage("new failure", 2); err != nil {
		t.Fatalf("re-Engage failed: %v", err)
	}
	marker, err := latch.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if marker.Reason != "new failure" {
		t.Errorf("expected new reason after clear, got %q", marker.Reason)
	}
}
