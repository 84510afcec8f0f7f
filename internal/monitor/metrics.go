package monitor

import (
	"runtime"
	"sync"
	"time"
)

// Metrics supplies health signals on demand. The real source of these
// numbers lives with the host system; the monitor calls Sample once per
// sampling tick and never computes metrics itself.
type Metrics interface {
	Sample() (HealthSnapshot, error)
}

// MetricsFunc adapts a plain function to the Metrics interface.
type MetricsFunc func() (HealthSnapshot, error)

func (f MetricsFunc) Sample() (HealthSnapshot, error) {
	return f()
}

// RuntimeMetrics is a local Metrics implementation: memory pressure from
// the Go runtime against a configured budget, plus host-fed error and
// crash counters.
type RuntimeMetrics struct {
	// MemoryBudgetBytes is the heap size treated as 100% memory usage.
	MemoryBudgetBytes uint64

	// CrashWindow bounds how far back crashes count toward a sample.
	CrashWindow time.Duration

	mu                sync.Mutex
	consecutiveErrors int
	crashes           []time.Time
}

// NewRuntimeMetrics creates a RuntimeMetrics with the given heap budget
// and a crash-counting window (default 10 minutes when zero).
func NewRuntimeMetrics(memoryBudgetBytes uint64, crashWindow time.Duration) *RuntimeMetrics {
	if crashWindow <= 0 {
		crashWindow = 10 * time.Minute
	}
	return &RuntimeMetrics{
		MemoryBudgetBytes: memoryBudgetBytes,
		CrashWindow:       crashWindow,
	}
}

// RecordError increments the consecutive-error counter.
func (m *RuntimeMetrics) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consecutiveErrors++
}

// ClearErrors resets the consecutive-error counter after a success.
func (m *RuntimeMetrics) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consecutiveErrors = 0
}

// RecordCrash notes a component crash at the current time.
func (m *RuntimeMetrics) RecordCrash() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crashes = append(m.crashes, time.Now())
}

// Sample reads the current health signals.
func (m *RuntimeMetrics) Sample() (HealthSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	percent := 0.0
	if m.MemoryBudgetBytes > 0 {
		percent = float64(ms.HeapAlloc) / float64(m.MemoryBudgetBytes) * 100
	}

	cutoff := time.Now().Add(-m.CrashWindow)
	kept := m.crashes[:0]
	for _, t := range m.crashes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	m.crashes = kept

	return HealthSnapshot{
		SampledAt:          time.Now(),
		MemoryUsagePercent: percent,
		ConsecutiveErrors:  m.consecutiveErrors,
		CrashesInWindow:    len(m.crashes),
	}, nil
}
