package attendance

import (
	"errors"
	"fmt"
	"math"
)

// Attendance domain errors. Policy rejections are expected business outcomes,
// not system failures; they surface verbatim to the caller.
var (
	// Check-in rejections
	ErrAlreadyClockedIn  = errors.New("you have already clocked in today")
	ErrNotAWorkingDay    = errors.New("today is not a working day for your company")
	ErrOutsideGeofence   = errors.New("you are outside the allowed clock-in area")
	ErrBiometricRequired = errors.New("biometric verification is required to clock in")
	ErrAutoDisabled      = errors.New("automatic attendance is disabled for this company")

	// Check-out rejections
	ErrRecordNotFound    = errors.New("attendance record not found")
	ErrNotClockedIn      = errors.New("you have not clocked in yet")
	ErrAlreadyCheckedOut = errors.New("you have already clocked out")

	// Break rejections
	ErrBreaksNotEnabled   = errors.New("breaks are not enabled for this company")
	ErrNoActiveBreak      = errors.New("no active break to end")
	ErrBreakAlreadyActive = errors.New("a break is already in progress")
)

// GeofenceError is an ErrOutsideGeofence carrying the measured distance so
// the UI can explain the rejection.
type GeofenceError struct {
	DistanceMeters float64
	RadiusMeters   float64
}

func (e *GeofenceError) Error() string {
	return fmt.Sprintf("you are outside the allowed clock-in area (%.0fm away, allowed radius %.0fm)",
		math.Round(e.DistanceMeters), e.RadiusMeters)
}

func (e *GeofenceError) Unwrap() error {
	return ErrOutsideGeofence
}
