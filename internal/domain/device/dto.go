package device

import (
	"github.com/stafftrack/attendance-backend-go/internal/pkg/validation"
)

type RegisterRequest struct {
	UserID    string `json:"-" validate:"required"`
	CompanyID string `json:"-" validate:"required"`
	Name      string `json:"name" validate:"required,max=100"`
}

func (r *RegisterRequest) Validate() error {
	return validation.Struct(r)
}

// RegisterResponse carries the plaintext device key exactly once.
type RegisterResponse struct {
	DeviceID  string `json:"device_id"`
	DeviceKey string `json:"device_key"`
}

type PingRequest struct {
	DeviceID  string `json:"device_id" validate:"required"`
	DeviceKey string `json:"device_key" validate:"required"`

	Latitude        float64 `json:"latitude" validate:"latitude"`
	Longitude       float64 `json:"longitude" validate:"longitude"`
	PermissionState string  `json:"permission_state" validate:"required,oneof=granted denied prompt"`
}

func (r *PingRequest) Validate() error {
	return validation.Struct(r)
}

type PingResponse struct {
	ID               string `json:"id"`
	IsInsideGeofence bool   `json:"is_inside_geofence"`
	CreatedAt        string `json:"created_at"`
}
