package jobs

import "time"

// JobResponse is the outward-facing representation of a job.
type JobResponse struct {
	JobID                 string    `json:"jobId"`
	EmployerID            string    `json:"employerId"`
	Title                 string    `json:"title"`
	Description           string    `json:"description,omitempty"`
	Country               string    `json:"country,omitempty"`
	Salary                string    `json:"salary,omitempty"`
	Status                string    `json:"status"`
	ShortlistedEmployeeID string    `json:"shortlistedEmployeeId,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
}

func toResponse(job Job) JobResponse {
	return JobResponse{
		JobID:                 job.ID,
		EmployerID:            job.EmployerID,
		Title:                 job.Title,
		Description:           job.Description,
		Country:               job.Country,
		Salary:                job.Salary,
		Status:                string(job.Status),
		ShortlistedEmployeeID: job.ShortlistedEmployeeID,
		CreatedAt:             job.CreatedAt,
	}
}
