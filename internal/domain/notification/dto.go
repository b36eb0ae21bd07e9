package notification

// CreateNotificationRequest queues one notification for async delivery.
type CreateNotificationRequest struct {
	CompanyID   string
	RecipientID string
	SenderID    *string
	Type        Type
	Title       string
	Message     string
	Data        map[string]interface{}
}

type Response struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt string                 `json:"created_at"`
}

type ListResponse struct {
	TotalCount    int64      `json:"total_count"`
	UnreadCount   int64      `json:"unread_count"`
	Notifications []Response `json:"notifications"`
}
