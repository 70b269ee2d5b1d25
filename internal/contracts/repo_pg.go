package contracts

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a contract. The unique index on application_id makes the
// insert a no-op when a contract already exists, reported as ErrAlreadyExists.
func (r *PGRepo) Create(ctx context.Context, contract Contract) error {
	const query = `
INSERT INTO contracts (id, application_id, job_id, employer_id, employee_id, document_url, issued_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (application_id) DO NOTHING`
	res, err := r.DB.ExecContext(
		ctx,
		query,
		contract.ID,
		contract.ApplicationID,
		contract.JobID,
		contract.EmployerID,
		contract.EmployeeID,
		contract.DocumentURL,
		contract.IssuedAt,
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// GetByApplication fetches the contract for an application.
func (r *PGRepo) GetByApplication(ctx context.Context, applicationID string) (Contract, error) {
	const query = `
SELECT id, application_id, job_id, employer_id, employee_id, document_url, issued_at
FROM contracts
WHERE application_id = $1`
	var contract Contract
	err := r.DB.QueryRowContext(ctx, query, applicationID).Scan(
		&contract.ID,
		&contract.ApplicationID,
		&contract.JobID,
		&contract.EmployerID,
		&contract.EmployeeID,
		&contract.DocumentURL,
		&contract.IssuedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contract{}, ErrNotFound
		}
		return Contract{}, err
	}
	return contract, nil
}

var _ Repo = (*PGRepo)(nil)
