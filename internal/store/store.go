// Package store persists runs, per-contact results, and the resolved-domain
// cache behind a backend-neutral interface.
package store

import (
	"context"
	"time"

	"github.com/leadline-labs/mailscout-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the discovery pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, stats model.RunStats) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Results
	SaveResults(ctx context.Context, runID string, results []model.ContactResult) error
	ListResults(ctx context.Context, runID string) ([]model.ContactResult, error)

	// Resolved-domain cache. GetDomain returns (nil, nil) on a miss.
	GetDomain(ctx context.Context, company string) (*model.DomainResult, error)
	SetDomain(ctx context.Context, company string, result model.DomainResult, ttl time.Duration) error
	DeleteExpiredDomains(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
