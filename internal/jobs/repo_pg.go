package jobs

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO jobs (id, employer_id, title, description, country, salary, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	status := job.Status
	if status == "" {
		status = StatusOpen
	}
	_, err := r.DB.ExecContext(
		ctx,
		query,
		job.ID,
		job.EmployerID,
		job.Title,
		job.Description,
		job.Country,
		job.Salary,
		string(status),
		job.CreatedAt,
	)
	return err
}

// GetByID fetches a job by ID.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	const query = `
SELECT id, employer_id, title, description, country, salary, status, shortlisted_employee_id, created_at, updated_at
FROM jobs
WHERE id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, jobID))
}

// ListByEmployer lists the employer's jobs, newest first.
func (r *PGRepo) ListByEmployer(ctx context.Context, employerID string, limit, offset int) ([]Job, error) {
	const query = `
SELECT id, employer_id, title, description, country, salary, status, shortlisted_employee_id, created_at, updated_at
FROM jobs
WHERE employer_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	return r.list(ctx, query, employerID, clampLimit(limit), clampOffset(offset))
}

// ListOpen lists open jobs, newest first.
func (r *PGRepo) ListOpen(ctx context.Context, limit, offset int) ([]Job, error) {
	const query = `
SELECT id, employer_id, title, description, country, salary, status, shortlisted_employee_id, created_at, updated_at
FROM jobs
WHERE status = 'open'
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	return r.list(ctx, query, clampLimit(limit), clampOffset(offset))
}

// SetShortlisted fills the shortlist slot via a conditional update; it fails
// with ErrShortlistTaken when a different employee already holds the slot.
func (r *PGRepo) SetShortlisted(ctx context.Context, jobID, employeeID string) error {
	const query = `
UPDATE jobs
SET shortlisted_employee_id = $1, updated_at = NOW()
WHERE id = $2
  AND (shortlisted_employee_id IS NULL OR shortlisted_employee_id = $1)`
	res, err := r.DB.ExecContext(ctx, query, employeeID, jobID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		if _, err := r.GetByID(ctx, jobID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrShortlistTaken
	}
	return nil
}

// ClearShortlisted frees the shortlist slot if held by the given employee.
func (r *PGRepo) ClearShortlisted(ctx context.Context, jobID, employeeID string) error {
	const query = `
UPDATE jobs
SET shortlisted_employee_id = NULL, updated_at = NOW()
WHERE id = $1 AND shortlisted_employee_id = $2`
	_, err := r.DB.ExecContext(ctx, query, jobID, employeeID)
	return err
}

// SetStatus updates the job's open/closed status.
func (r *PGRepo) SetStatus(ctx context.Context, jobID string, status Status) error {
	const query = `
UPDATE jobs
SET status = $1, updated_at = NOW()
WHERE id = $2`
	_, err := r.DB.ExecContext(ctx, query, string(status), jobID)
	return err
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]Job, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row rowScanner) (Job, error) {
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var status string
	var shortlisted sql.NullString
	if err := row.Scan(
		&job.ID,
		&job.EmployerID,
		&job.Title,
		&job.Description,
		&job.Country,
		&job.Salary,
		&status,
		&shortlisted,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return Job{}, err
	}
	job.Status = Status(status)
	if shortlisted.Valid {
		job.ShortlistedEmployeeID = shortlisted.String
	}
	return job, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

var _ Repo = (*PGRepo)(nil)
