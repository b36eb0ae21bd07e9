package notification

import (
	"context"
)

type Repository interface {
	// CreateBatch inserts many notifications in one round trip.
	CreateBatch(ctx context.Context, notifications []*Notification) error

	// ListByRecipient returns a recipient's notifications, newest first.
	ListByRecipient(ctx context.Context, recipientID, companyID string, limit, offset int) ([]*Notification, int64, int64, error)

	// MarkRead marks one notification read for its recipient.
	MarkRead(ctx context.Context, id, recipientID string) error
}
