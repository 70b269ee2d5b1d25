package contracts

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu            sync.RWMutex
	byApplication map[string]Contract
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byApplication: make(map[string]Contract)}
}

// Create stores a contract, rejecting duplicates per application.
func (r *MemoryRepo) Create(ctx context.Context, contract Contract) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byApplication[contract.ApplicationID]; ok {
		return ErrAlreadyExists
	}
	r.byApplication[contract.ApplicationID] = contract
	return nil
}

// GetByApplication returns the contract for an application.
func (r *MemoryRepo) GetByApplication(ctx context.Context, applicationID string) (Contract, error) {
	if err := ctx.Err(); err != nil {
		return Contract{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	contract, ok := r.byApplication[applicationID]
	if !ok {
		return Contract{}, ErrNotFound
	}
	return contract, nil
}

var _ Repo = (*MemoryRepo)(nil)
