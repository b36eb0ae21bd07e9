package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stafftrack/attendance-backend-go/internal/domain/notification"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/sse"
)

// Config tunes the async delivery pipeline.
type Config struct {
	BatchSize     int           // default: 100
	FlushInterval time.Duration // default: 5 seconds
	WorkerCount   int           // default: 2
	QueueSize     int           // default: 1000
}

type service struct {
	repo   notification.Repository
	hub    *sse.Hub
	config Config

	queue  chan notification.CreateNotificationRequest
	wg     sync.WaitGroup
	stopCh chan struct{}
}

// NewNotificationService starts the background workers. Notifications are
// buffered in memory and batch-inserted; the attendance engine never waits
// on a notification write.
func NewNotificationService(repo notification.Repository, hub *sse.Hub, cfg Config) notification.Service {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}

	s := &service{
		repo:   repo,
		hub:    hub,
		config: cfg,
		queue:  make(chan notification.CreateNotificationRequest, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("Notification service started",
		"workers", cfg.WorkerCount,
		"batch_size", cfg.BatchSize,
		"flush_interval", cfg.FlushInterval)

	return s
}

func (s *service) worker(id int) {
	defer s.wg.Done()

	batch := make([]notification.CreateNotificationRequest, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		notifications := make([]*notification.Notification, len(batch))
		for i, req := range batch {
			notifications[i] = newNotification(req)
		}

		if err := s.repo.CreateBatch(ctx, notifications); err != nil {
			slog.Error("Failed to batch insert notifications", "worker", id, "count", len(notifications), "error", err)
		} else {
			for _, n := range notifications {
				s.publish(n)
			}
		}

		batch = batch[:0]
	}

	for {
		select {
		case req := <-s.queue:
			batch = append(batch, req)
			if len(batch) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
			// Drain whatever is still queued, then flush once.
			for {
				select {
				case req := <-s.queue:
					batch = append(batch, req)
				default:
					flush()
					return
				}
			}
		}
	}
}

// QueueNotification implements notification.Service. When the queue is full
// the notification falls through to a direct single-row insert rather than
// blocking the caller.
func (s *service) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	select {
	case s.queue <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return s.directInsert(ctx, req)
	}
}

func (s *service) directInsert(ctx context.Context, req notification.CreateNotificationRequest) error {
	n := newNotification(req)
	if err := s.repo.CreateBatch(ctx, []*notification.Notification{n}); err != nil {
		return err
	}
	s.publish(n)
	return nil
}

func (s *service) publish(n *notification.Notification) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(n.RecipientID, sse.Event{
		UserID: n.RecipientID,
		Event:  "notification",
		Data:   toResponse(n),
	})
}

// List implements notification.Service.
func (s *service) List(ctx context.Context, recipientID, companyID string, limit, offset int) (notification.ListResponse, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	notifications, total, unread, err := s.repo.ListByRecipient(ctx, recipientID, companyID, limit, offset)
	if err != nil {
		return notification.ListResponse{}, err
	}

	responses := make([]notification.Response, len(notifications))
	for i, n := range notifications {
		responses[i] = toResponse(n)
	}

	return notification.ListResponse{
		TotalCount:    total,
		UnreadCount:   unread,
		Notifications: responses,
	}, nil
}

// MarkRead implements notification.Service.
func (s *service) MarkRead(ctx context.Context, id, recipientID string) error {
	return s.repo.MarkRead(ctx, id, recipientID)
}

// Stop flushes pending batches and waits for the workers to exit.
func (s *service) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	slog.Info("Notification service stopped")
}

func newNotification(req notification.CreateNotificationRequest) *notification.Notification {
	return &notification.Notification{
		ID:          uuid.New().String(),
		CompanyID:   req.CompanyID,
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		Data:        req.Data,
		IsRead:      false,
		CreatedAt:   time.Now(),
	}
}

func toResponse(n *notification.Notification) notification.Response {
	return notification.Response{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
