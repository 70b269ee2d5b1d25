package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidInput indicates validation or bad input.
var ErrInvalidInput = errors.New("invalid input")

// Service contains business logic for jobs. Stage-driven mutations of status
// and the shortlist slot live in the application workflow engine, not here.
type Service struct {
	Repo Repo
}

// Create posts a new open job for the employer.
func (s *Service) Create(ctx context.Context, employerID string, job Job) (Job, error) {
	if strings.TrimSpace(employerID) == "" || strings.TrimSpace(job.Title) == "" {
		return Job{}, ErrInvalidInput
	}

	job.ID = uuid.NewString()
	job.EmployerID = employerID
	job.Status = StatusOpen
	job.ShortlistedEmployeeID = ""
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt

	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Get returns a job by ID.
func (s *Service) Get(ctx context.Context, jobID string) (Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return Job{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, jobID)
}

// ListMine returns the employer's jobs.
func (s *Service) ListMine(ctx context.Context, employerID string, limit, offset int) ([]Job, error) {
	return s.Repo.ListByEmployer(ctx, employerID, limit, offset)
}

// ListOpen returns open jobs for browsing.
func (s *Service) ListOpen(ctx context.Context, limit, offset int) ([]Job, error) {
	return s.Repo.ListOpen(ctx, limit, offset)
}
