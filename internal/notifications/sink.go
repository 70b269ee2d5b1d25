package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Sink delivers a notification to a user. Delivery failures are the
// caller's concern; implementations should not retry internally.
type Sink interface {
	Notify(ctx context.Context, userID, title, message string, metadata map[string]string) error
}

// StoreSink persists notifications through a Repo so users can read them
// from the API later.
type StoreSink struct {
	Repo Repo
}

func (s *StoreSink) Notify(ctx context.Context, userID, title, message string, metadata map[string]string) error {
	return s.Repo.Create(ctx, Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	})
}

var _ Sink = (*StoreSink)(nil)
