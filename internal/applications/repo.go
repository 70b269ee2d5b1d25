package applications

import (
	"context"
	"time"

	"placement-backend/internal/jobs"
)

// Snapshot is the locked view of the world a transition decision runs
// against. Siblings holds the other applications for the same job.
type Snapshot struct {
	Application    Application
	Job            jobs.Job
	Siblings       []Application
	ContractExists bool
}

// Update describes the mutation a decision wants committed atomically with
// the stage change.
type Update struct {
	Stage          Stage
	EnteredAt      time.Time
	AttachmentKind AttachmentKind
	Attachment     *Attachment

	SetShortlistedEmployee   bool
	ClearShortlistedEmployee bool
	CloseJob                 bool
}

// DecideFunc inspects a locked snapshot and returns the update to commit.
// Returning an error aborts the transition with no mutation.
type DecideFunc func(snap Snapshot) (Update, error)

// Repo persists applications. Transition runs decide under an exclusive
// per-application lock (plus the job lock, so shortlist races between two
// applications of the same job serialize) and commits the returned update
// atomically. Lock acquisition failures surface as ErrLockContention.
type Repo interface {
	Create(ctx context.Context, app Application) error
	GetByID(ctx context.Context, id string) (Application, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]Application, error)
	ListByJob(ctx context.Context, jobID string) ([]Application, error)
	Transition(ctx context.Context, applicationID string, decide DecideFunc) (Application, error)
}
