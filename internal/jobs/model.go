package jobs

import "time"

// Status values mirror the job status column in PostgreSQL.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Job is a position posted by an overseas employer. Once applications exist
// for a job, its status and shortlist slot are mutated only by the
// application workflow engine.
type Job struct {
	ID                    string
	EmployerID            string
	Title                 string
	Description           string
	Country               string
	Salary                string
	Status                Status
	ShortlistedEmployeeID string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
