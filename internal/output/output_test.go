package output

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/phasegate/internal/store"
)

func TestRenderSnapshotTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	t.Run("empty", func(t *testing.T) {
		out := RenderSnapshotTable(nil)
		if !strings.Contains(out, "No snapshots") {
			t.Errorf("unexpected empty output: %q", out)
		}
	})

	t.Run("newest first with validation mark", func(t *testing.T) {
		snaps := []*store.Snapshot{
			{ID: 1, Phase: 1, CreatedAt: time.Now().Add(-2 * time.Hour), Description: "baseline", ArtifactCount: 3},
			{ID: 2, Phase: 2, CreatedAt: time.Now(), Description: "post-advance", ArtifactCount: 3, Validated: true},
		}
		out := RenderSnapshotTable(snaps)

		if !strings.Contains(out, "baseline") || !strings.Contains(out, "post-advance") {
			t.Errorf("missing rows: %q", out)
		}
		if !strings.Contains(out, "tested") {
			t.Errorf("validated snapshot should be marked: %q", out)
		}
		// Snapshot 2 renders above snapshot 1.
		if strings.Index(out, "post-advance") > strings.Index(out, "baseline") {
			t.Error("expected newest snapshot first")
		}
	})
}

func TestRenderOperationTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	t.Run("empty", func(t *testing.T) {
		out := RenderOperationTable(nil)
		if !strings.Contains(out, "No rollback operations") {
			t.Errorf("unexpected empty output: %q", out)
		}
	})

	t.Run("result column", func(t *testing.T) {
		now := time.Now()
		ops := []*store.RollbackOperation{
			{ID: "op-ok", StartedAt: now, ConcludedAt: &now, TargetSnapshotID: 1, Success: true, Initiator: store.InitiatorOperator, Reason: "manual"},
			{ID: "op-bad", StartedAt: now, ConcludedAt: &now, TargetSnapshotID: 2, Success: false, Initiator: store.InitiatorSystem, Reason: "trigger"},
			{ID: "op-crashed", StartedAt: now, TargetSnapshotID: 3, Initiator: store.InitiatorSystem, Reason: "interrupted"},
		}
		out := RenderOperationTable(ops)

		if !strings.Contains(out, "ok") {
			t.Errorf("missing success marker: %q", out)
		}
		if !strings.Contains(out, "failed") {
			t.Errorf("missing failure marker: %q", out)
		}
		if !strings.Contains(out, "pending") {
			t.Errorf("missing pending marker for unconcluded op: %q", out)
		}
	})
}

func TestRenderEvolutionTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	t.Run("empty", func(t *testing.T) {
		out := RenderEvolutionTable(nil)
		if !strings.Contains(out, "No evolution requests") {
			t.Errorf("unexpected empty output: %q", out)
		}
	})

	t.Run("rows", func(t *testing.T) {
		reqs := []*store.EvolutionRequest{
			{ID: "req-1234", RequestedAt: time.Now(), RequestedBy: "ops", Kind: "minor", RiskScore: 4, ConsentGranted: true, ReviewStatus: store.ReviewApproved},
		}
		out := RenderEvolutionTable(reqs)

		if !strings.Contains(out, "minor") || !strings.Contains(out, "4/10") {
			t.Errorf("missing request data: %q", out)
		}
		if !strings.Contains(out, "approved") {
			t.Errorf("missing review status: %q", out)
		}
		if !strings.Contains(out, "yes") {
			t.Errorf("missing consent marker: %q", out)
		}
	})
}

func TestFormatRelativeTime(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"just now", time.Now().Add(-30 * time.Second), "just now"},
		{"minutes", time.Now().Add(-5 * time.Minute), "5 minutes ago"},
		{"one hour", time.Now().Add(-90 * time.Minute), "1 hour ago"},
		{"days", time.Now().Add(-48 * time.Hour), "2 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRelativeTime(tt.t); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	if got := truncate("a very long description indeed", 10); got != "a very ..." {
		t.Errorf("expected truncation with ellipsis, got %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc" {
		t.Errorf("expected hard cut at tiny widths, got %q", got)
	}
}
