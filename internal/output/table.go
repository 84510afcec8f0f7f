// Package output provides terminal output utilities for phasegate:
// table rendering for snapshots, rollback operations, and evolution
// requests, a spinner for indeterminate operations, and human-readable
// formatting helpers. Tables use ASCII characters and ANSI color codes.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/phasegate/internal/store"
)

// ANSI color codes for status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderSnapshotTable renders a table of snapshot index rows, newest first.
func RenderSnapshotTable(snapshots []*store.Snapshot) string {
	if len(snapshots) == 0 {
		return "No snapshots found.\n"
	}

	sorted := make([]*store.Snapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID > sorted[j].ID
	})

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-6s %-17s %-9s %-10s %s\n",
		"ID", "Phase", "Created", "Artifacts", "Validated", "Description"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, snap := range sorted {
		validated := "—"
		if snap.Validated {
			validated = colorize(colorGreen, "✓ tested")
		}

		sb.WriteString(fmt.Sprintf("%-5d %-6d %-17s %-9d %-10s %s\n",
			snap.ID,
			snap.Phase,
			formatRelativeTime(snap.CreatedAt),
			snap.ArtifactCount,
			validated,
			truncate(snap.Description, 36)))
	}

	return sb.String()
}

// RenderOperationTable renders the rollback-operation audit log, newest
// first (the log is already ordered by the store).
func RenderOperationTable(ops []*store.RollbackOperation) string {
	if len(ops) == 0 {
		return "No rollback operations recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-10s %-17s %-9s %-9s %-8s %s\n",
		"ID", "Started", "Snapshot", "Initiator", "Result", "Reason"))
	sb.WriteString(strings.Repeat("─", 88))
	sb.WriteString("\n")

	for _, op := range ops {
		result := colorize(colorYellow, "pending")
		if op.ConcludedAt != nil {
			if op.Success {
				result = colorize(colorGreen, "ok")
			} else {
				result = colorize(colorRed, "failed")
			}
		}

		sb.WriteString(fmt.Sprintf("%-10s %-17s %-9d %-9s %-8s %s\n",
			truncate(op.ID, 8),
			formatRelativeTime(op.StartedAt),
			op.TargetSnapshotID,
			op.Initiator,
			result,
			truncate(op.Reason, 40)))
	}

	return sb.String()
}

// RenderEvolutionTable renders evolution requests, newest first.
func RenderEvolutionTable(reqs []*store.EvolutionRequest) string {
	if len(reqs) == 0 {
		return "No evolution requests.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-10s %-17s %-10s %-5s %-8s %-9s %s\n",
		"ID", "Requested", "Kind", "Risk", "Consent", "Review", "Requested By"))
	sb.WriteString(strings.Repeat("─", 84))
	sb.WriteString("\n")

	for _, req := range reqs {
		risk := fmt.Sprintf("%d/10", req.RiskScore)
		consent := "no"
		if req.ConsentGranted {
			consent = "yes"
		}

		var review string
		switch req.ReviewStatus {
		case store.ReviewApproved, store.ReviewApplied:
			review = colorize(colorGreen, req.ReviewStatus)
		case store.ReviewRejected:
			review = colorize(colorRed, req.ReviewStatus)
		default:
			review = colorize(colorGray, req.ReviewStatus)
		}

		sb.WriteString(fmt.Sprintf("%-10s %-17s %-10s %-5s %-8s %-9s %s\n",
			truncate(req.ID, 8),
			formatRelativeTime(req.RequestedAt),
			req.Kind,
			risk,
			consent,
			review,
			req.RequestedBy))
	}

	return sb.String()
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	case diff < 365*24*time.Hour:
		months := int(diff.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	default:
		years := int(diff.Hours() / 24 / 365)
		if years == 1 {
			return "1 year ago"
		}
		return fmt.Sprintf("%d years ago", years)
	}
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
