package usage

import (
	"time"

	"critiqal/internal/api"
)

// UsageData represents the root structure stored in persistence.
type UsageData struct {
	Version   string          `json:"version"`
	LastRun   time.Time       `json:"last_run,omitempty"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// AggregatedStats holds counters overall and per command.
type AggregatedStats struct {
	Total     Counts            `json:"total"`
	ByCommand map[string]Counts `json:"by_command"`
}

// Counts sums session recovery activity over runs.
type Counts struct {
	Runs             int64 `json:"runs"`
	RefreshAttempts  int64 `json:"refresh_attempts"`
	AuthRetries      int64 `json:"auth_retries"`
	TransientRetries int64 `json:"transient_retries"`
}

// Add records one run that produced s.
func (c *Counts) Add(s api.Stats) {
	c.Runs++
	c.RefreshAttempts += s.RefreshAttempts
	c.AuthRetries += s.AuthRetries
	c.TransientRetries += s.TransientRetries
}
