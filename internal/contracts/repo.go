package contracts

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates no contract exists for the lookup.
	ErrNotFound = errors.New("contract not found")

	// ErrAlreadyExists indicates a contract already references the application.
	ErrAlreadyExists = errors.New("contract already exists")
)

// Repo defines persistence operations for contracts. Create must reject a
// second contract for the same application.
type Repo interface {
	Create(ctx context.Context, contract Contract) error
	GetByApplication(ctx context.Context, applicationID string) (Contract, error)
}
