package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the outcome of a conversion run
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded" // every product converted and exported
	RunPartial   RunStatus = "partial"   // exported, but some products failed
	RunFailed    RunStatus = "failed"    // nothing was exported
)

// RunRepository defines the interface for conversion run history
type RunRepository interface {
	Add(ctx context.Context, run *ConversionRun) error
	GetRecent(ctx context.Context, limit int) ([]*ConversionRun, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ConversionRun, error)
}

// ConversionRun represents one convert invocation in the history log
type ConversionRun struct {
	ID          uuid.UUID  `json:"id"`
	Input       string     `json:"input"`
	Destination string     `json:"destination"`
	Format      string     `json:"format"`
	Products    int        `json:"products"`
	Rows        int        `json:"rows"`
	Images      int        `json:"images"`
	Errors      int        `json:"errors"`
	Status      RunStatus  `json:"status"`
	Details     string     `json:"details,omitempty"`
	DryRun      bool       `json:"dry_run"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Duration returns how long the run took, zero while it is still open
func (r *ConversionRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// StatusFor derives a run status from exported and failed product counts
func StatusFor(exported, failed int) RunStatus {
	switch {
	case exported == 0 && failed > 0:
		return RunFailed
	case failed > 0:
		return RunPartial
	default:
		return RunSucceeded
	}
}
