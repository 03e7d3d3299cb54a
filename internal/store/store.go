// Package store persists batch runs and their per-seed outcomes.
package store

import (
	"context"
	"time"

	"github.com/sells-group/clinic-intel/internal/model"
)

// RunStatus is the lifecycle state of a batch run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning     RunStatus = "running"
	RunStatusComplete    RunStatus = "complete"
	RunStatusInterrupted RunStatus = "interrupted"
)

// OutcomeStatus marks a seed as extracted or failed.
type OutcomeStatus string

// Outcome statuses.
const (
	OutcomeOK     OutcomeStatus = "ok"
	OutcomeFailed OutcomeStatus = "failed"
)

// Run is one batch invocation.
type Run struct {
	ID         string
	Provider   string
	Seeds      int
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Outcome is the stored result for one seed.
type Outcome struct {
	ID        string
	RunID     string
	URL       string
	Status    OutcomeStatus
	Record    model.ExtractionRecord
	Error     string
	Attempts  int
	CreatedAt time.Time
}

// Result returns the output row for a successful outcome.
func (o Outcome) Result() model.ClinicResult {
	return model.ClinicResult{URL: o.URL, ClinicInfo: o.Record}
}

// Store defines the persistence interface for batch runs.
type Store interface {
	CreateRun(ctx context.Context, provider string, seeds int) (*Run, error)
	FinishRun(ctx context.Context, runID string, status RunStatus) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context) ([]Run, error)

	SaveOutcome(ctx context.Context, o Outcome) (*Outcome, error)
	ListOutcomes(ctx context.Context, runID string) ([]Outcome, error)

	Migrate(ctx context.Context) error
	Close() error
}
