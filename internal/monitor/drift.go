package monitor

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/blackwell-systems/phasegate/internal/artifact"
	"github.com/blackwell-systems/phasegate/internal/integrity"
)

// FingerprintLookup returns the expected fingerprint for an artifact name,
// typically from the latest snapshot. The second return is false when the
// artifact is not tracked by any snapshot.
type FingerprintLookup func(name string) (string, bool)

// DriftSource is a TriggerSource that watches the artifact directory for
// out-of-band modifications. Filesystem events are collected as they
// arrive; each Poll re-fingerprints the touched artifacts against their
// expected fingerprints and emits an event per confirmed divergence.
type DriftSource struct {
	registry *artifact.DirRegistry
	lookup   FingerprintLookup
	action   Action
	watcher  *fsnotify.Watcher
	log      *zap.Logger

	mu      sync.Mutex
	pending map[string]struct{}

	done chan struct{}
	wg   sync.WaitGroup
}

// NewDriftSource starts watching the registry directory. Confirmed drift
// emits events with the given action (warn or rollback).
func NewDriftSource(reg *artifact.DirRegistry, lookup FingerprintLookup, action Action, logger *zap.Logger) (*DriftSource, error) {
	if action != ActionWarn && action != ActionRollback {
		return nil, fmt.Errorf("drift source action must be warn or rollback, got %q", action)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := watcher.Add(reg.Root()); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch artifact directory: %w", err)
	}

	d := &DriftSource{
		registry: reg,
		lookup:   lookup,
		action:   action,
		watcher:  watcher,
		log:      logger,
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}

	d.wg.Add(1)
	go d.collect()

	return d, nil
}

// Name identifies the source in logs.
func (d *DriftSource) Name() string {
	return "artifact-drift"
}

// collect drains filesystem events into the pending set.
func (d *DriftSource) collect() {
	defer d.wg.Done()

	for {
		select {
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			// Skip the registry's own atomic-write temp files and hidden files.
			if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
				continue
			}
			d.mu.Lock()
			d.pending[name] = struct{}{}
			d.mu.Unlock()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.log.Warn("artifact watcher error", zap.Error(err))

		case <-d.done:
			return
		}
	}
}

// Poll confirms or dismisses accumulated filesystem events. An artifact
// whose current fingerprint still matches its expected one (e.g. the
// change came from a rollback restoring it) emits nothing.
func (d *DriftSource) Poll() ([]TriggerEvent, error) {
	d.mu.Lock()
	touched := make([]string, 0, len(d.pending))
	for name := range d.pending {
		touched = append(touched, name)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	var events []TriggerEvent
	for _, name := range touched {
		expected, tracked := d.lookup(name)
		if !tracked {
			continue
		}

		observed := ""
		content, err := d.registry.Read(name)
		if err != nil {
			observed = fmt.Sprintf("artifact %s unreadable after change: %v", name, err)
		} else if integrity.Fingerprint(content) != expected {
			observed = fmt.Sprintf("artifact %s diverged from snapshot fingerprint", name)
		} else {
			continue
		}

		events = append(events, TriggerEvent{
			Trigger: Trigger{
				Name:   "artifact-drift:" + name,
				Kind:   KindCompatibility,
				Action: d.action,
			},
			Observed: observed,
			Action:   d.action,
		})
	}

	return events, nil
}

// Close stops the filesystem watcher.
func (d *DriftSource) Close() error {
	close(d.done)
	err := d.watcher.Close()
	d.wg.Wait()
	return err
}
