package usage

import (
	"encoding/json"
	"testing"
	"time"

	"critiqal/internal/api"
	"critiqal/internal/store"
)

func TestTracker_TrackAggregatesAndPersists(t *testing.T) {
	kv := store.NewMemoryStore()
	tracker := NewTracker(kv)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return fixed }

	tracker.Track("recent", api.Stats{RefreshAttempts: 1, AuthRetries: 1})
	tracker.Track("recent", api.Stats{TransientRetries: 2})
	tracker.Track("whoami", api.Stats{})

	stats := tracker.Stats()
	if stats.Total.Runs != 3 || stats.Total.RefreshAttempts != 1 || stats.Total.TransientRetries != 2 {
		t.Fatalf("Total=%+v, want runs=3 refresh=1 transient=2", stats.Total)
	}
	if got := stats.ByCommand["recent"]; got.Runs != 2 || got.AuthRetries != 1 {
		t.Fatalf("ByCommand[recent]=%+v, want runs=2 auth_retries=1", got)
	}
	if got := stats.ByCommand["whoami"]; got.Runs != 1 {
		t.Fatalf("ByCommand[whoami]=%+v, want runs=1", got)
	}

	if err := tracker.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw := store.GetString(kv, store.KeyUsage)
	var persisted UsageData
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		t.Fatalf("unmarshal usage: %v", err)
	}
	if persisted.Aggregate.Total.Runs != 3 {
		t.Fatalf("persisted runs=%d, want 3", persisted.Aggregate.Total.Runs)
	}
	if !persisted.LastRun.Equal(fixed) {
		t.Fatalf("persisted last_run=%v, want %v", persisted.LastRun, fixed)
	}

	reloaded := NewTracker(kv)
	if got := reloaded.Stats().ByCommand["recent"].Runs; got != 2 {
		t.Fatalf("reloaded ByCommand[recent].Runs=%d, want 2", got)
	}
	if got := reloaded.LastRun(); !got.Equal(fixed) {
		t.Fatalf("reloaded LastRun()=%v, want %v", got, fixed)
	}
	if !NewTracker(store.NewMemoryStore()).LastRun().IsZero() {
		t.Fatalf("fresh tracker has a last run")
	}
}

func TestTracker_StatsIsACopy(t *testing.T) {
	tracker := NewTracker(store.NewMemoryStore())
	tracker.Track("status", api.Stats{})

	stats := tracker.Stats()
	stats.ByCommand["status"] = Counts{Runs: 99}

	if got := tracker.Stats().ByCommand["status"].Runs; got != 1 {
		t.Fatalf("Runs=%d after mutating a copy, want 1", got)
	}
}

func TestTracker_SaveSkipsWhenClean(t *testing.T) {
	kv := store.NewMemoryStore()
	tracker := NewTracker(kv)

	if err := tracker.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok, _ := kv.Get(store.KeyUsage); ok {
		t.Fatalf("clean tracker wrote usage data")
	}
}

func TestTracker_CorruptDataIsReplaced(t *testing.T) {
	kv := store.NewMemoryStore()
	if err := kv.Set(store.KeyUsage, "{not json"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	tracker := NewTracker(kv)
	tracker.Track("", api.Stats{AuthRetries: 1})
	if err := tracker.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := NewTracker(kv)
	if got := reloaded.Stats().ByCommand["unknown"].AuthRetries; got != 1 {
		t.Fatalf("ByCommand[unknown].AuthRetries=%d, want 1", got)
	}
}

func TestTracker_SessionClearKeepsUsage(t *testing.T) {
	kv := store.NewMemoryStore()
	tracker := NewTracker(kv)
	tracker.Track("sign-in", api.Stats{})
	if err := tracker.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := store.ClearSession(kv); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if store.GetString(kv, store.KeyUsage) == "" {
		t.Fatalf("usage removed by ClearSession")
	}
}
