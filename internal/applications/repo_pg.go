package applications

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"placement-backend/internal/jobs"
)

// Postgres error codes the engine maps to domain errors.
const (
	pgCodeLockNotAvailable = "55P03"
	pgCodeUniqueViolation  = "23505"
)

// PGRepo implements Repo using Postgres. Transition takes row locks with
// FOR UPDATE NOWAIT so contention surfaces immediately as ErrLockContention
// and the service layer can back off and retry.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new application. The unique index on (job_id,
// employee_id) rejects duplicate applications.
func (r *PGRepo) Create(ctx context.Context, app Application) error {
	timestamps, err := json.Marshal(app.StageTimestamps)
	if err != nil {
		return err
	}
	attachments, err := json.Marshal(app.Attachments)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO applications (id, job_id, employee_id, stage, stage_timestamps, attachments, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	_, err = r.DB.ExecContext(
		ctx,
		query,
		app.ID,
		app.JobID,
		app.EmployeeID,
		string(app.Stage),
		timestamps,
		attachments,
		app.CreatedAt,
	)
	if isPGCode(err, pgCodeUniqueViolation) {
		return ErrAlreadyApplied
	}
	return err
}

// GetByID fetches an application by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Application, error) {
	const query = `
SELECT id, job_id, employee_id, stage, stage_timestamps, attachments, created_at, updated_at
FROM applications
WHERE id = $1`
	app, err := scanApplication(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}
	return app, nil
}

// ListByEmployee lists the employee's applications, oldest first.
func (r *PGRepo) ListByEmployee(ctx context.Context, employeeID string) ([]Application, error) {
	const query = `
SELECT id, job_id, employee_id, stage, stage_timestamps, attachments, created_at, updated_at
FROM applications
WHERE employee_id = $1
ORDER BY created_at ASC`
	return r.list(ctx, r.DB, query, employeeID)
}

// ListByJob lists a job's applications, oldest first.
func (r *PGRepo) ListByJob(ctx context.Context, jobID string) ([]Application, error) {
	const query = `
SELECT id, job_id, employee_id, stage, stage_timestamps, attachments, created_at, updated_at
FROM applications
WHERE job_id = $1
ORDER BY created_at ASC`
	return r.list(ctx, r.DB, query, jobID)
}

// Transition runs decide against a locked snapshot and commits the returned
// update atomically. Both the application row and its job row are locked
// with NOWAIT, application first.
func (r *PGRepo) Transition(ctx context.Context, applicationID string, decide DecideFunc) (Application, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Application{}, err
	}
	defer tx.Rollback()

	const lockApp = `
SELECT id, job_id, employee_id, stage, stage_timestamps, attachments, created_at, updated_at
FROM applications
WHERE id = $1
FOR UPDATE NOWAIT`
	app, err := scanApplication(tx.QueryRowContext(ctx, lockApp, applicationID))
	if err != nil {
		return Application{}, mapLockErr(err)
	}

	const lockJob = `
SELECT id, employer_id, status, shortlisted_employee_id
FROM jobs
WHERE id = $1
FOR UPDATE NOWAIT`
	var job jobs.Job
	var jobStatus string
	var shortlisted sql.NullString
	if err := tx.QueryRowContext(ctx, lockJob, app.JobID).Scan(
		&job.ID,
		&job.EmployerID,
		&jobStatus,
		&shortlisted,
	); err != nil {
		return Application{}, mapLockErr(err)
	}
	job.Status = jobs.Status(jobStatus)
	if shortlisted.Valid {
		job.ShortlistedEmployeeID = shortlisted.String
	}

	const siblingsQuery = `
SELECT id, job_id, employee_id, stage, stage_timestamps, attachments, created_at, updated_at
FROM applications
WHERE job_id = $1 AND id <> $2`
	siblings, err := r.list(ctx, tx, siblingsQuery, app.JobID, app.ID)
	if err != nil {
		return Application{}, err
	}

	var contractExists bool
	const contractQuery = `SELECT EXISTS (SELECT 1 FROM contracts WHERE application_id = $1)`
	if err := tx.QueryRowContext(ctx, contractQuery, app.ID).Scan(&contractExists); err != nil {
		return Application{}, err
	}

	update, err := decide(Snapshot{
		Application:    app,
		Job:            job,
		Siblings:       siblings,
		ContractExists: contractExists,
	})
	if err != nil {
		return Application{}, err
	}

	if err := applyJobUpdate(ctx, tx, app, update); err != nil {
		return Application{}, err
	}

	patchTimestamps, err := json.Marshal(map[Stage]time.Time{update.Stage: update.EnteredAt})
	if err != nil {
		return Application{}, err
	}
	patchAttachments := []byte("{}")
	if update.Attachment != nil {
		patchAttachments, err = json.Marshal(map[AttachmentKind]Attachment{update.AttachmentKind: *update.Attachment})
		if err != nil {
			return Application{}, err
		}
	}

	// stage_timestamps is append-only: existing keys win over the patch.
	const commit = `
UPDATE applications
SET stage = $1,
    stage_timestamps = $2::jsonb || stage_timestamps,
    attachments = attachments || $3::jsonb,
    updated_at = $4
WHERE id = $5
RETURNING id, job_id, employee_id, stage, stage_timestamps, attachments, created_at, updated_at`
	updated, err := scanApplication(tx.QueryRowContext(
		ctx,
		commit,
		string(update.Stage),
		patchTimestamps,
		patchAttachments,
		update.EnteredAt,
		app.ID,
	))
	if err != nil {
		return Application{}, err
	}

	if err := tx.Commit(); err != nil {
		return Application{}, err
	}
	return updated, nil
}

func applyJobUpdate(ctx context.Context, tx *sql.Tx, app Application, update Update) error {
	if update.SetShortlistedEmployee {
		const query = `
UPDATE jobs
SET shortlisted_employee_id = $1, updated_at = NOW()
WHERE id = $2
  AND (shortlisted_employee_id IS NULL OR shortlisted_employee_id = $1)`
		res, err := tx.ExecContext(ctx, query, app.EmployeeID, app.JobID)
		if err != nil {
			return err
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return ErrJobAlreadyShortlisted
		}
	}
	if update.ClearShortlistedEmployee {
		const query = `
UPDATE jobs
SET shortlisted_employee_id = NULL, updated_at = NOW()
WHERE id = $1 AND shortlisted_employee_id = $2`
		if _, err := tx.ExecContext(ctx, query, app.JobID, app.EmployeeID); err != nil {
			return err
		}
	}
	if update.CloseJob {
		const query = `
UPDATE jobs
SET status = 'closed', updated_at = NOW()
WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, app.JobID); err != nil {
			return err
		}
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *PGRepo) list(ctx context.Context, q queryer, query string, args ...any) ([]Application, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (Application, error) {
	var app Application
	var stage string
	var timestamps, attachments []byte
	if err := row.Scan(
		&app.ID,
		&app.JobID,
		&app.EmployeeID,
		&stage,
		&timestamps,
		&attachments,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return Application{}, err
	}
	app.Stage = Stage(stage)
	if len(timestamps) > 0 {
		if err := json.Unmarshal(timestamps, &app.StageTimestamps); err != nil {
			return Application{}, err
		}
	}
	if app.StageTimestamps == nil {
		app.StageTimestamps = make(map[Stage]time.Time)
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &app.Attachments); err != nil {
			return Application{}, err
		}
	}
	if app.Attachments == nil {
		app.Attachments = make(map[AttachmentKind]Attachment)
	}
	return app, nil
}

func mapLockErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if isPGCode(err, pgCodeLockNotAvailable) {
		return ErrLockContention
	}
	return err
}

func isPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

var _ Repo = (*PGRepo)(nil)
