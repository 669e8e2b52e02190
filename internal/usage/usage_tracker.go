// Package usage keeps cumulative API client counters across runs.
package usage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"critiqal/internal/api"
	"critiqal/internal/logging"
	"critiqal/internal/store"
)

const dataVersion = "1.0"

// Tracker records per-command client stats and persists them in a KV store.
type Tracker struct {
	mu    sync.Mutex
	kv    store.KV
	data  UsageData
	dirty bool
	now   func() time.Time
}

// NewTracker creates a tracker backed by kv and loads any saved counters.
// Unreadable saved data is logged and replaced.
func NewTracker(kv store.KV) *Tracker {
	t := &Tracker{
		kv:  kv,
		now: time.Now,
		data: UsageData{
			Version:   dataVersion,
			Aggregate: AggregatedStats{ByCommand: make(map[string]Counts)},
		},
	}
	if err := t.Load(); err != nil {
		logging.StoreWarn("Discarding unreadable usage data: %v", err)
	}
	return t
}

// Load reads the usage data from the store.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, ok, err := t.kv.Get(store.KeyUsage)
	if err != nil {
		return err
	}
	if !ok || raw == "" {
		return nil
	}

	var data UsageData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return fmt.Errorf("failed to parse usage data: %w", err)
	}
	if data.Aggregate.ByCommand == nil {
		data.Aggregate.ByCommand = make(map[string]Counts)
	}
	t.data = data
	return nil
}

// Save writes the usage data when it changed since the last save.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return nil
	}

	t.data.Version = dataVersion
	data, err := json.Marshal(t.data)
	if err != nil {
		return err
	}
	if err := t.kv.Set(store.KeyUsage, string(data)); err != nil {
		return fmt.Errorf("failed to save usage data: %w", err)
	}
	t.dirty = false
	return nil
}

// Track records one run of command that produced s.
func (t *Tracker) Track(command string, s api.Stats) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if command == "" {
		command = "unknown"
	}
	t.data.Aggregate.Total.Add(s)
	entry := t.data.Aggregate.ByCommand[command]
	entry.Add(s)
	t.data.Aggregate.ByCommand[command] = entry
	t.data.LastRun = t.now().UTC()
	t.dirty = true

	logging.APIDebug("Usage tracked for %s: %+v", command, s)
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByCommand = make(map[string]Counts, len(t.data.Aggregate.ByCommand))
	for k, v := range t.data.Aggregate.ByCommand {
		stats.ByCommand[k] = v
	}
	return stats
}

// LastRun reports when a run was last tracked.
func (t *Tracker) LastRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data.LastRun
}
