// Package monitoring collects run health metrics and raises webhook alerts
// when failure or find rates drift past configured thresholds.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/leadline-labs/mailscout-cli/internal/model"
	"github.com/leadline-labs/mailscout-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of finder health.
type MetricsSnapshot struct {
	// Run metrics (within lookback window).
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsRunning  int     `json:"runs_running"`
	RunsQueued   int     `json:"runs_queued"`
	RunFailRate  float64 `json:"run_fail_rate"`

	// Contact metrics aggregated from completed runs.
	ContactsProcessed int     `json:"contacts_processed"`
	EmailsFound       int     `json:"emails_found"`
	EmailsVerified    int     `json:"emails_verified"`
	EmailsCatchAll    int     `json:"emails_catch_all"`
	NoDomainCount     int     `json:"no_domain_count"`
	FindRate          float64 `json:"find_rate"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the run store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
		case model.RunStatusQueued:
			snap.RunsQueued++
		}
		if r.Stats != nil {
			snap.ContactsProcessed += r.Stats.Total
			snap.EmailsFound += r.Stats.Found
			snap.EmailsVerified += r.Stats.Verified
			snap.EmailsCatchAll += r.Stats.CatchAll
			snap.NoDomainCount += r.Stats.NoDomain
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.RunFailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.ContactsProcessed > 0 {
		snap.FindRate = float64(snap.EmailsFound) / float64(snap.ContactsProcessed)
	}

	return snap, nil
}
