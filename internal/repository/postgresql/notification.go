package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stafftrack/attendance-backend-go/internal/domain/notification"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/database"
)

type notificationRepository struct {
	db *database.DB
}

func NewNotificationRepository(db *database.DB) notification.Repository {
	return &notificationRepository{db: db}
}

// CreateBatch implements notification.Repository with a single multi-row
// insert.
func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*notification.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	q := GetQuerier(ctx, r.db)

	valueStrings := make([]string, 0, len(notifications))
	valueArgs := make([]interface{}, 0, len(notifications)*10)

	for i, n := range notifications {
		if n.ID == "" {
			n.ID = uuid.New().String()
		}

		dataJSON, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal notification data: %w", err)
		}

		base := i * 10
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10,
		))
		valueArgs = append(valueArgs,
			n.ID, n.CompanyID, n.RecipientID, n.SenderID,
			string(n.Type), n.Title, n.Message, dataJSON,
			n.IsRead, n.CreatedAt,
		)
	}

	query := `
		INSERT INTO notifications (id, company_id, recipient_id, sender_id, type, title, message, data, is_read, created_at)
		VALUES ` + strings.Join(valueStrings, ", ")

	if _, err := q.Exec(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("failed to batch insert notifications: %w", err)
	}

	return nil
}

// ListByRecipient implements notification.Repository.
func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID, companyID string, limit, offset int) ([]*notification.Notification, int64, int64, error) {
	q := GetQuerier(ctx, r.db)

	var total, unread int64
	countQuery := `
		SELECT COUNT(*),
			   COUNT(*) FILTER (WHERE is_read = FALSE)
		FROM notifications
		WHERE recipient_id = $1 AND company_id = $2`
	if err := q.QueryRow(ctx, countQuery, recipientID, companyID).Scan(&total, &unread); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
		SELECT id, company_id, recipient_id, sender_id, type, title, message, data,
			   is_read, read_at, created_at
		FROM notifications
		WHERE recipient_id = $1 AND company_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := q.Query(ctx, query, recipientID, companyID, limit, offset)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		var n notification.Notification
		var dataJSON []byte
		err := rows.Scan(&n.ID, &n.CompanyID, &n.RecipientID, &n.SenderID,
			&n.Type, &n.Title, &n.Message, &dataJSON,
			&n.IsRead, &n.ReadAt, &n.CreatedAt)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &n.Data); err != nil {
				return nil, 0, 0, fmt.Errorf("failed to unmarshal notification data: %w", err)
			}
		}
		notifications = append(notifications, &n)
	}

	return notifications, total, unread, rows.Err()
}

// MarkRead implements notification.Repository.
func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = NOW()
		WHERE id = $1 AND recipient_id = $2`

	tag, err := q.Exec(ctx, query, id, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}
	return nil
}
