package jobs

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Job
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Job)}
}

// Create stores a new job.
func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[job.ID] = job
	return nil
}

// GetByID returns the job with the given ID.
func (r *MemoryRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.data[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// ListByEmployer returns the employer's jobs, newest first.
func (r *MemoryRepo) ListByEmployer(ctx context.Context, employerID string, limit, offset int) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Job
	for _, job := range r.data {
		if job.EmployerID == employerID {
			out = append(out, job)
		}
	}
	return window(out, limit, offset), nil
}

// ListOpen returns open jobs, newest first.
func (r *MemoryRepo) ListOpen(ctx context.Context, limit, offset int) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Job
	for _, job := range r.data {
		if job.Status == StatusOpen {
			out = append(out, job)
		}
	}
	return window(out, limit, offset), nil
}

// SetShortlisted fills the shortlist slot if it is free or already held by
// the same employee.
func (r *MemoryRepo) SetShortlisted(ctx context.Context, jobID, employeeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.data[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.ShortlistedEmployeeID != "" && job.ShortlistedEmployeeID != employeeID {
		return ErrShortlistTaken
	}
	job.ShortlistedEmployeeID = employeeID
	r.data[jobID] = job
	return nil
}

// ClearShortlisted frees the shortlist slot if it is held by the given employee.
func (r *MemoryRepo) ClearShortlisted(ctx context.Context, jobID, employeeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.data[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.ShortlistedEmployeeID == employeeID {
		job.ShortlistedEmployeeID = ""
		r.data[jobID] = job
	}
	return nil
}

// SetStatus updates the job's open/closed status.
func (r *MemoryRepo) SetStatus(ctx context.Context, jobID string, status Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.data[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = status
	r.data[jobID] = job
	return nil
}

func window(jobs []Job, limit, offset int) []Job {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(jobs) {
		return []Job{}
	}
	end := len(jobs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return jobs[offset:end]
}

var _ Repo = (*MemoryRepo)(nil)
