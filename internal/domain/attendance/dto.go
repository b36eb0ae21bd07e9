package attendance

import (
	"github.com/stafftrack/attendance-backend-go/internal/pkg/geo"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/validation"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type CheckInRequest struct {
	UserID    string `json:"-" validate:"required"`
	CompanyID string `json:"-" validate:"required"`

	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`

	Method         CheckMethod `json:"-"`
	BiometricProof *string     `json:"biometric_proof,omitempty"`
}

func (r *CheckInRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	return validateLocationPair(r.Latitude, r.Longitude)
}

// Location returns the supplied coordinates, or nil when the request carries
// no usable location.
func (r *CheckInRequest) Location() *geo.Coordinates {
	return coordinatesOf(r.Latitude, r.Longitude)
}

type CheckOutRequest struct {
	UserID       string `json:"-" validate:"required"`
	CompanyID    string `json:"-" validate:"required"`
	AttendanceID string `json:"attendance_id" validate:"required"`

	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`

	Method          CheckMethod `json:"-"`
	DepartureReason *string     `json:"departure_reason,omitempty"`
	BiometricProof  *string     `json:"biometric_proof,omitempty"`
}

func (r *CheckOutRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	return validateLocationPair(r.Latitude, r.Longitude)
}

func (r *CheckOutRequest) Location() *geo.Coordinates {
	return coordinatesOf(r.Latitude, r.Longitude)
}

type BreakRequest struct {
	UserID    string `json:"-" validate:"required"`
	CompanyID string `json:"-" validate:"required"`
}

func (r *BreakRequest) Validate() error {
	return validation.Struct(r)
}

func validateLocationPair(lat, lon *float64) error {
	if (lat == nil) != (lon == nil) {
		return validation.Errors{{
			Field:   "location",
			Message: "latitude and longitude must be provided together",
		}}
	}
	if lat != nil {
		c := geo.Coordinates{Latitude: *lat, Longitude: *lon}
		if !c.Valid() {
			return validation.Errors{{
				Field:   "location",
				Message: "coordinates are out of range or ungeocoded",
			}}
		}
	}
	return nil
}

func coordinatesOf(lat, lon *float64) *geo.Coordinates {
	if lat == nil || lon == nil {
		return nil
	}
	c := geo.Coordinates{Latitude: *lat, Longitude: *lon}
	if !c.Valid() {
		return nil
	}
	return &c
}

// ========================================
// FILTERS & RESPONSES
// ========================================

type ListFilter struct {
	UserID    *string
	StartDate *string
	EndDate   *string
	Status    *string
	Page      int
	Limit     int
}

type BreakResponse struct {
	ID              string  `json:"id"`
	StartTime       string  `json:"start_time"`
	EndTime         *string `json:"end_time"`
	DurationMinutes *int    `json:"duration_minutes"`
}

type RecordResponse struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id"`
	EmployeeName *string `json:"employee_name,omitempty"`
	WorkDate     string  `json:"work_date"`

	ClockInTime  string  `json:"clock_in_time"`
	ClockOutTime *string `json:"clock_out_time"`

	ClockInLatitude   *float64 `json:"clock_in_latitude"`
	ClockInLongitude  *float64 `json:"clock_in_longitude"`
	ClockOutLatitude  *float64 `json:"clock_out_latitude"`
	ClockOutLongitude *float64 `json:"clock_out_longitude"`

	ClockInDistanceMeters  *float64 `json:"clock_in_distance_meters"`
	ClockOutDistanceMeters *float64 `json:"clock_out_distance_meters"`
	IsWithinGeofence       bool     `json:"is_within_geofence"`

	Status           string  `json:"status"`
	IsLateArrival    bool    `json:"is_late_arrival"`
	MinutesLate      int     `json:"minutes_late"`
	IsEarlyDeparture bool    `json:"is_early_departure"`
	MinutesEarly     int     `json:"minutes_early"`
	DepartureReason  *string `json:"departure_reason"`

	CheckInMethod  string  `json:"check_in_method"`
	CheckOutMethod *string `json:"check_out_method"`

	Breaks            []BreakResponse `json:"breaks,omitempty"`
	TotalBreakMinutes int             `json:"total_break_minutes"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ListResponse struct {
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
	Records    []RecordResponse `json:"records"`
}
