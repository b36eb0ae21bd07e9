package device

import (
	"time"
)

// Device is a registered employee device allowed to push location pings.
// The device key is returned once at registration and stored only as a
// bcrypt hash.
type Device struct {
	ID         string
	CompanyID  string
	UserID     string
	Name       string
	KeyHash    string
	LastSeenAt *time.Time
	CreatedAt  time.Time
}
