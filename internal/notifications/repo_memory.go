package notifications

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for local development and tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	byUser map[string][]Notification
}

// NewMemoryRepo creates an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byUser: make(map[string][]Notification)}
}

func (r *MemoryRepo) Create(ctx context.Context, n Notification) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[n.UserID] = append(r.byUser[n.UserID], n)
	return nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]Notification, len(r.byUser[userID]))
	copy(items, r.byUser[userID])
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *MemoryRepo) MarkRead(ctx context.Context, userID, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byUser[userID]
	for i := range list {
		if list[i].ID == id {
			now := time.Now().UTC()
			list[i].ReadAt = &now
			return nil
		}
	}
	return ErrNotFound
}

var _ Repo = (*MemoryRepo)(nil)
