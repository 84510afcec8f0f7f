// Package monitor samples system health signals on a timer and raises
// trigger events when declared thresholds are crossed. It decides nothing
// itself: fired events go to the phase controller, which owns priority and
// consequences.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSamplePeriod is how often health is sampled when the config does
// not say otherwise.
const DefaultSamplePeriod = 30 * time.Second

// EventHandler receives fired trigger events. The phase controller
// implements this; handling runs inline in the sampling tick so two ticks
// never overlap and a trigger-driven rollback finishes before the next
// sample is scheduled.
type EventHandler interface {
	HandleTriggerEvent(ev TriggerEvent) error
}

// TriggerSource is a pluggable producer of trigger events outside the
// threshold rules, e.g. the artifact-drift watcher. Sources are polled
// once per tick, after threshold evaluation.
type TriggerSource interface {
	Name() string
	Poll() ([]TriggerEvent, error)
}

// Monitor runs the periodic health-sampling loop.
type Monitor struct {
	metrics Metrics
	handler EventHandler
	period  time.Duration
	log     *zap.Logger

	mu       sync.Mutex
	triggers []Trigger
	sources  []TriggerSource

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// New creates a Monitor. A period <= 0 uses DefaultSamplePeriod; a nil
// logger disables logging.
func New(metrics Metrics, handler EventHandler, period time.Duration, logger *zap.Logger) (*Monitor, error) {
	if metrics == nil {
		return nil, fmt.Errorf("metrics collaborator is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("event handler is required")
	}
	if period <= 0 {
		period = DefaultSamplePeriod
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		metrics: metrics,
		handler: handler,
		period:  period,
		log:     logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// RegisterTrigger adds a trigger. Evaluation order is registration order.
func (m *Monitor) RegisterTrigger(t Trigger) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers = append(m.triggers, t)
	return nil
}

// RegisterSource adds a pluggable trigger source.
func (m *Monitor) RegisterSource(s TriggerSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, s)
}

// Sample reads current health signals from the metrics collaborator.
func (m *Monitor) Sample() (HealthSnapshot, error) {
	return m.metrics.Sample()
}

// Evaluate returns an event for every registered trigger whose threshold
// the snapshot crosses, in registration order. All fired events are
// returned; the controller decides priority.
func (m *Monitor) Evaluate(h HealthSnapshot) []TriggerEvent {
	m.mu.Lock()
	triggers := make([]Trigger, len(m.triggers))
	copy(triggers, m.triggers)
	m.mu.Unlock()

	var events []TriggerEvent
	for _, t := range triggers {
		if fired, observed := t.crossed(h); fired {
			events = append(events, TriggerEvent{
				Trigger:  t,
				Observed: observed,
				Action:   t.Action,
			})
		}
	}
	return events
}

// Start begins the sampling loop. It runs one tick immediately so a bad
// state is noticed at startup rather than one period later.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("monitor already started")
	}
	m.started = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run()
	return nil
}

func (m *Monitor) run() {
	defer m.wg.Done()

	m.tick()

	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// tick runs inline: the next ticker fire is not serviced until
			// this one (including any rollback it started) completes.
			m.tick()
		case <-m.stopCh:
			return
		}
	}
}

// tick performs one sample-evaluate-handle cycle.
func (m *Monitor) tick() {
	health, err := m.Sample()
	if err != nil {
		m.log.Warn("health sample failed", zap.Error(err))
		return
	}

	events := m.Evaluate(health)

	m.mu.Lock()
	sources := make([]TriggerSource, len(m.sources))
	copy(sources, m.sources)
	m.mu.Unlock()

	for _, src := range sources {
		srcEvents, err := src.Poll()
		if err != nil {
			m.log.Warn("trigger source poll failed",
				zap.String("source", src.Name()),
				zap.Error(err),
			)
			continue
		}
		events = append(events, srcEvents...)
	}

	for _, ev := range events {
		m.log.Info("trigger fired",
			zap.String("trigger", ev.Trigger.Name),
			zap.String("kind", string(ev.Trigger.Kind)),
			zap.String("action", string(ev.Action)),
			zap.String("observed", ev.Observed),
		)
		if err := m.handler.HandleTriggerEvent(ev); err != nil {
			m.log.Error("trigger handling failed",
				zap.String("trigger", ev.Trigger.Name),
				zap.Error(err),
			)
		}
	}
}

// Stop halts the sampling loop. It waits for an in-flight tick to finish,
// so the monitor can never be stopped out from under a rollback it is
// running.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()
	return nil
}
