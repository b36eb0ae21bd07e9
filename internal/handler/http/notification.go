package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"

	"github.com/stafftrack/attendance-backend-go/internal/domain/notification"
	"github.com/stafftrack/attendance-backend-go/internal/handler/http/response"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/sse"
)

// NotificationHandler defines the notification handler interface
type NotificationHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	MarkAsRead(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type notificationHandlerImpl struct {
	notifService notification.Service
	hub          *sse.Hub
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifService notification.Service, hub *sse.Hub) NotificationHandler {
	return &notificationHandlerImpl{
		notifService: notifService,
		hub:          hub,
	}
}

// getUserIDFromContext extracts user_id from JWT context
func getUserIDFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if userID, ok := claims["user_id"].(string); ok {
		return userID
	}
	return ""
}

// getCompanyIDFromContext extracts company_id from JWT context
func getCompanyIDFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if companyID, ok := claims["company_id"].(string); ok {
		return companyID
	}
	return ""
}

// getIntQueryParam gets an int query parameter with a default value
func getIntQueryParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

// List returns paginated notifications for the authenticated user
func (h *notificationHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	limit := getIntQueryParam(r, "limit", 20)
	page := getIntQueryParam(r, "page", 1)
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	result, err := h.notifService.List(r.Context(), userID, getCompanyIDFromContext(r), limit, offset)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// MarkAsRead marks one notification as read
func (h *notificationHandlerImpl) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.notifService.MarkRead(r.Context(), id, userID); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Notification marked as read", nil)
}

// Stream handles SSE connection for real-time notifications
func (h *notificationHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(userID)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"user_id\":%q}\n\n", userID)
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
