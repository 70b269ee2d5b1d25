package jobs

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the job does not exist.
	ErrNotFound = errors.New("job not found")

	// ErrShortlistTaken indicates the shortlist slot is already held by a
	// different employee.
	ErrShortlistTaken = errors.New("shortlist slot already taken")
)

// Repo defines persistence operations for jobs. SetShortlisted and
// ClearShortlisted are conditional updates so the single-shortlist guarantee
// holds even outside the engine's row locks.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	ListByEmployer(ctx context.Context, employerID string, limit, offset int) ([]Job, error)
	ListOpen(ctx context.Context, limit, offset int) ([]Job, error)
	SetShortlisted(ctx context.Context, jobID, employeeID string) error
	ClearShortlisted(ctx context.Context, jobID, employeeID string) error
	SetStatus(ctx context.Context, jobID string, status Status) error
}
