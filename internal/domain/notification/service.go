package notification

import (
	"context"
)

// Service queues notifications for asynchronous delivery. Queueing is
// fire-and-forget relative to the attendance decision: a failed notification
// never rolls back or blocks the attendance mutation.
type Service interface {
	QueueNotification(ctx context.Context, req CreateNotificationRequest) error

	List(ctx context.Context, recipientID, companyID string, limit, offset int) (ListResponse, error)
	MarkRead(ctx context.Context, id, recipientID string) error

	// Stop flushes pending batches and stops the workers.
	Stop()
}
