package employee

import (
	"time"
)

// LocationVerificationMaxAge is how long a location verification stays fresh.
const LocationVerificationMaxAge = 7 * 24 * time.Hour

type Employee struct {
	ID        string
	CompanyID string
	UserID    string
	FullName  string
	Email     string
	Role      string // owner, admin, employee
	IsActive  bool
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOwner reports whether the employee is the company owner. Owners are
// excluded from performance snapshots.
func (e Employee) IsOwner() bool {
	return e.Role == "owner"
}

func (e Employee) IsAdmin() bool {
	return e.Role == "admin" || e.Role == "owner"
}

// AttendanceSettings is the per-employee attendance configuration layered on
// top of company policy.
type AttendanceSettings struct {
	EmployeeID string
	CompanyID  string

	// AllowRemoteClockIn overrides the company-wide remote flag for this
	// employee when set.
	AllowRemoteClockIn *bool

	// RemoteWorkDays are the ISO weekdays (1=Mon..7=Sun) on which this
	// employee is personally permitted to clock in remotely.
	RemoteWorkDays []int

	// AllowMultiLocationClockIn widens the geofence candidate set to all of
	// the company's active named locations.
	AllowMultiLocationClockIn bool

	// AllowMultipleClockInsPerDay permits a new clock-in cycle after a
	// checkout on the same local day. Kept separate from
	// AllowMultiLocationClockIn on purpose: the two concerns are unrelated.
	AllowMultipleClockInsPerDay bool

	LastLocationVerifiedAt *time.Time
	UpdatedAt              time.Time
}

// RemoteAllowed reports whether remote clock-in applies for this employee
// given the company-wide default.
func (s AttendanceSettings) RemoteAllowed(companyDefault bool) bool {
	if s.AllowRemoteClockIn != nil {
		return *s.AllowRemoteClockIn
	}
	return companyDefault
}

// RemoteAllowedOn reports whether remote clock-in applies on the given ISO
// weekday.
func (s AttendanceSettings) RemoteAllowedOn(companyDefault bool, isoWeekday int) bool {
	if !s.RemoteAllowed(companyDefault) {
		return false
	}
	for _, d := range s.RemoteWorkDays {
		if d == isoWeekday {
			return true
		}
	}
	return false
}

// LocationVerificationFresh reports whether the employee's device location
// was verified within the staleness window as of now.
func (s AttendanceSettings) LocationVerificationFresh(now time.Time) bool {
	if s.LastLocationVerifiedAt == nil {
		return false
	}
	return now.Sub(*s.LastLocationVerifiedAt) <= LocationVerificationMaxAge
}
