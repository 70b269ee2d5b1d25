package contracts

import "time"

// Contract is the employment contract issued once an application's contract
// is signed. Exactly one contract exists per application.
type Contract struct {
	ID            string
	ApplicationID string
	JobID         string
	EmployerID    string
	EmployeeID    string
	DocumentURL   string
	IssuedAt      time.Time
}
