package notification

import (
	"time"
)

// Type represents the kind of notification
type Type string

const (
	TypeLateArrival         Type = "late_arrival"
	TypeEarlyDeparture      Type = "early_departure"
	TypeGeofenceViolation   Type = "geofence_violation"
	TypeAutoClockIn         Type = "auto_clock_in"
	TypeAutoClockOut        Type = "auto_clock_out"
	TypeClockOutReminder    Type = "clock_out_reminder"
	TypePerformanceSnapshot Type = "performance_snapshot"
)

// AllTypes returns all notification types the engine emits.
func AllTypes() []Type {
	return []Type{
		TypeLateArrival,
		TypeEarlyDeparture,
		TypeGeofenceViolation,
		TypeAutoClockIn,
		TypeAutoClockOut,
		TypeClockOutReminder,
		TypePerformanceSnapshot,
	}
}

// Notification is a stored notification row, pushed to SSE subscribers on
// insert.
type Notification struct {
	ID          string
	CompanyID   string
	RecipientID string
	SenderID    *string
	Type        Type
	Title       string
	Message     string
	Data        map[string]interface{}
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}
