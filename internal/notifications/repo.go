package notifications

import "context"

type errNotFound struct{}

func (errNotFound) Error() string { return "notification not found" }

// ErrNotFound indicates the notification does not exist.
var ErrNotFound error = errNotFound{}

// Repo persists notifications.
type Repo interface {
	Create(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}
