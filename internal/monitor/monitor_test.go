package monitor

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// recordingHandler collects every event it is handed.
type recordingHandler struct {
	mu     sync.Mutex
	events []TriggerEvent
}

func (h *recordingHandler) HandleTriggerEvent(ev TriggerEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return nil
}

func (h *recordingHandler) snapshot() []TriggerEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]TriggerEvent, len(h.events))
	copy(out, h.events)
	return out
}

func staticMetrics(h HealthSnapshot) Metrics {
	return MetricsFunc(func() (HealthSnapshot, error) {
		return h, nil
	})
}

func TestTriggerCrossed(t *testing.T) {
	tests := []struct {
		name      string
		threshold Threshold
		health    HealthSnapshot
		want      bool
	}{
		{
			"memory under", Threshold{MaxMemoryPercent: 85},
			HealthSnapshot{MemoryUsagePercent: 50}, false,
		},
		{
			"memory at threshold", Threshold{MaxMemoryPercent: 85},
			HealthSnapshot{MemoryUsagePercent: 85}, true,
		},
		{
			"errors over", Threshold{MaxConsecutiveErrors: 5},
			HealthSnapshot{ConsecutiveErrors: 7}, true,
		},
		{
			"crashes under", Threshold{MaxCrashCount: 3},
			HealthSnapshot{CrashesInWindow: 2}, false,
		},
		{
			"unset fields never fire", Threshold{},
			HealthSnapshot{MemoryUsagePercent: 99, ConsecutiveErrors: 99, CrashesInWindow: 99}, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trig := Trigger{Name: "t", Kind: KindStability, Action: ActionWarn, Threshold: tt.threshold}
			fired, observed := trig.crossed(tt.health)
			if fired != tt.want {
				t.Errorf("expected fired=%v, got %v", tt.want, fired)
			}
			if fired && observed == "" {
				t.Error("fired trigger should describe the observed value")
			}
		})
	}
}

func TestTriggerValidate(t *testing.T) {
	good := Trigger{Name: "ok", Kind: KindPerformance, Action: ActionWarn}
	if err := good.Validate(); err != nil {
		t.Errorf("valid trigger rejected: %v", err)
	}

	if err := (Trigger{Name: "bad-kind", Kind: "thermal", Action: ActionWarn}).Validate(); err == nil {
		t.Error("unknown kind should be rejected")
	}
	if err := (Trigger{Name: "bad-action", Kind: KindStability, Action: "reboot"}).Validate(); err == nil {
		t.Error("unknown action should be rejected")
	}
}

func TestEvaluateRegistrationOrder(t *testing.T) {
	handler := &recordingHandler{}
	m, err := New(staticMetrics(HealthSnapshot{}), handler, time.Minute, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	triggers := []Trigger{
		{Name: "first", Kind: KindStability, Action: ActionWarn, Threshold: Threshold{MaxConsecutiveErrors: 1}},
		{Name: "second", Kind: KindStability, Action: ActionRollback, Threshold: Threshold{MaxConsecutiveErrors: 1}},
		{Name: "never", Kind: KindStability, Action: ActionEmergencyStop, Threshold: Threshold{MaxCrashCount: 99}},
	}
	for _, trig := range triggers {
		if err := m.RegisterTrigger(trig); err != nil {
			t.Fatalf("RegisterTrigger failed: %v", err)
		}
	}

	events := m.Evaluate(HealthSnapshot{ConsecutiveErrors: 3})
	if len(events) != 2 {
		t.Fatalf("expected 2 fired triggers, got %d", len(events))
	}
	if events[0].Trigger.Name != "first" || events[1].Trigger.Name != "second" {
		t.Errorf("events out of registration order: %s, %s",
			events[0].Trigger.Name, events[1].Trigger.Name)
	}

	if got := m.Evaluate(HealthSnapshot{}); len(got) != 0 {
		t.Errorf("healthy snapshot should fire nothing, got %d events", len(got))
	}
}

func TestRegisterTriggerValidates(t *testing.T) {
	m, err := New(staticMetrics(HealthSnapshot{}), &recordingHandler{}, time.Minute, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := m.RegisterTrigger(Trigger{Name: "bad", Kind: "nope", Action: ActionWarn}); err == nil {
		t.Error("invalid trigger should be rejected at registration")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(nil, &recordingHandler{}, time.Minute, nil); err == nil {
		t.Error("expected error for nil metrics")
	}
	if _, err := New(staticMetrics(HealthSnapshot{}), nil, time.Minute, nil); err == nil {
		t.Error("expected error for nil handler")
	}
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	handler := &recordingHandler{}
	m, err := New(staticMetrics(HealthSnapshot{ConsecutiveErrors: 10}), handler, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := m.RegisterTrigger(Trigger{
		Name: "errors", Kind: KindStability, Action: ActionWarn,
		Threshold: Threshold{MaxConsecutiveErrors: 5},
	}); err != nil {
		t.Fatalf("RegisterTrigger failed: %v", err)
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Start(); err == nil {
		t.Error("second Start should fail")
	}

	// The first tick runs immediately; wait until the handler has seen it.
	deadline := time.Now().Add(2 * time.Second)
	for len(handler.snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler never received the startup tick")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// Stopping again is harmless.
	if err := m.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}

	ev := handler.snapshot()[0]
	if ev.Trigger.Name != "errors" || ev.Action != ActionWarn {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestRuntimeMetrics(t *testing.T) {
	m := NewRuntimeMetrics(1<<30, time.Minute)

	h, err := m.Sample()
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if h.ConsecutiveErrors != 0 || h.CrashesInWindow != 0 {
		t.Errorf("fresh metrics should be zero: %+v", h)
	}
	if h.MemoryUsagePercent <= 0 {
		t.Error("heap usage against a budget should be positive")
	}

	m.RecordError()
	m.RecordError()
	m.RecordCrash()

	h, err = m.Sample()
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if h.ConsecutiveErrors != 2 {
		t.Errorf("expected 2 consecutive errors, got %d", h.ConsecutiveErrors)
	}
	if h.CrashesInWindow != 1 {
		t.Errorf("expected 1 crash in window, got %d", h.CrashesInWindow)
	}

	m.ClearErrors()
	h, err = m.Sample()
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if h.ConsecutiveErrors != 0 {
		t.Errorf("expected cleared errors, got %d", h.ConsecutiveErrors)
	}
}
