package company

import (
	"time"

	"github.com/stafftrack/attendance-backend-go/internal/pkg/geo"
)

// Location is an additional named office a multi-location company allows
// clock-ins from, with its own geofence.
type Location struct {
	ID           string
	CompanyID    string
	Name         string
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (l Location) Coordinates() geo.Coordinates {
	return geo.Coordinates{Latitude: l.Latitude, Longitude: l.Longitude}
}

// Policy is the per-tenant attendance configuration the engine evaluates
// every clock-in/out attempt against.
type Policy struct {
	CompanyID string
	Name      string
	Timezone  string

	// Working calendar. ISO weekday numbers 1 (Mon) to 7 (Sun); empty or
	// malformed sets fall back to Mon-Fri at evaluation time.
	WorkingDays   []int
	WorkStartTime time.Time // time-of-day, date part ignored
	WorkEndTime   time.Time // time-of-day, date part ignored

	GracePeriodMinutes             int
	EarlyDepartureThresholdMinutes int

	// Primary geofence. Latitude/Longitude are nil when the office has not
	// been geocoded yet.
	OfficeLatitude       *float64
	OfficeLongitude      *float64
	GeofenceRadiusMeters float64

	RequireGeofenceForClockIn          bool
	AllowRemoteClockIn                 bool
	AllowRemoteClockInOnNonWorkingDays bool
	BiometricsRequired                 bool
	AutoClockInEnabled                 bool
	AutoClockOutEnabled                bool
	BreaksEnabled                      bool
	NotifyLateArrival                  bool
	NotifyEarlyDeparture               bool

	// KPI weights. They need not sum to 100; scoring normalizes by the sum.
	AttendanceWeight     float64
	TaskCompletionWeight float64

	// Additional named offices, loaded with the policy.
	Locations []Location

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OfficeCoordinates returns the primary office geofence center, or false when
// the office is not geocoded.
func (p Policy) OfficeCoordinates() (geo.Coordinates, bool) {
	if p.OfficeLatitude == nil || p.OfficeLongitude == nil {
		return geo.Coordinates{}, false
	}
	c := geo.Coordinates{Latitude: *p.OfficeLatitude, Longitude: *p.OfficeLongitude}
	if !c.Valid() {
		return geo.Coordinates{}, false
	}
	return c, true
}
