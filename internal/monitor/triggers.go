package monitor

import (
	"fmt"
	"time"
)

// Kind categorizes a health trigger.
type Kind string

const (
	KindPerformance   Kind = "performance"
	KindCompatibility Kind = "compatibility"
	KindStability     Kind = "stability"
	KindManual        Kind = "manual"
)

// Action is what the phase controller should do when a trigger fires.
// The monitor only reports; priority between simultaneous events is the
// controller's call.
type Action string

const (
	ActionWarn          Action = "warn"
	ActionRollback      Action = "rollback"
	ActionEmergencyStop Action = "emergency-stop"
)

// Threshold is a structured condition over a health snapshot. A zero field
// is unset and never fires; a trigger fires when any set bound is crossed.
type Threshold struct {
	MaxMemoryPercent     float64  `yaml:"max_memory_percent"`
	MaxConsecutiveErrors int      `yaml:"max_consecutive_errors"`
	MaxCrashCount        int      `yaml:"max_crash_count"`
	Window               Duration `yaml:"window"`
}

// Trigger is a declarative health rule: a threshold condition mapped to an
// action.
type Trigger struct {
	Name      string    `yaml:"name"`
	Kind      Kind      `yaml:"kind"`
	Action    Action    `yaml:"action"`
	Threshold Threshold `yaml:"threshold"`
}

// Validate checks kind and action values.
func (t Trigger) Validate() error {
	switch t.Kind {
	case KindPerformance, KindCompatibility, KindStability, KindManual:
	default:
		return fmt.Errorf("trigger %s: unknown kind %q", t.Name, t.Kind)
	}
	switch t.Action {
	case ActionWarn, ActionRollback, ActionEmergencyStop:
	default:
		return fmt.Errorf("trigger %s: unknown action %q", t.Name, t.Action)
	}
	return nil
}

// HealthSnapshot is one sample of the host's health signals, supplied by
// the metrics collaborator.
type HealthSnapshot struct {
	SampledAt          time.Time
	MemoryUsagePercent float64
	ConsecutiveErrors  int
	CrashesInWindow    int
	Custom             map[string]float64
}

// TriggerEvent reports one trigger whose threshold was crossed.
type TriggerEvent struct {
	Trigger  Trigger
	Observed string
	Action   Action
}

// crossed reports whether the snapshot crosses the trigger's threshold,
// with a description of the observed value.
func (t Trigger) crossed(h HealthSnapshot) (bool, string) {
	th := t.Threshold
	if th.MaxMemoryPercent > 0 && h.MemoryUsagePercent >= th.MaxMemoryPercent {
		return true, fmt.Sprintf("memory usage %.1f%% >= %.1f%%", h.MemoryUsagePercent, th.MaxMemoryPercent)
	}
	if th.MaxConsecutiveErrors > 0 && h.ConsecutiveErrors >= th.MaxConsecutiveErrors {
		return true, fmt.Sprintf("%d consecutive errors >= %d", h.ConsecutiveErrors, th.MaxConsecutiveErrors)
	}
	if th.MaxCrashCount > 0 && h.CrashesInWindow >= th.MaxCrashCount {
		return true, fmt.Sprintf("%d crashes in window >= %d", h.CrashesInWindow, th.MaxCrashCount)
	}
	return false, ""
}
