package attendance

import (
	"time"
)

// Status is the lifecycle status of an attendance record.
type Status string

const (
	StatusPresent        Status = "present"
	StatusLate           Status = "late"
	StatusOnBreak        Status = "on_break"
	StatusEarlyDeparture Status = "early_departure"
	StatusAbsent         Status = "absent"
)

// CheckMethod records whether a clock event came from the employee or from
// the auto-attendance scheduler.
type CheckMethod string

const (
	MethodManual CheckMethod = "manual"
	MethodAuto   CheckMethod = "auto"
)

// Record is one attendance session. Created at clock-in, finalized at
// clock-out, never hard-deleted.
type Record struct {
	ID        string
	CompanyID string
	UserID    string

	// WorkDate is the company-local calendar day the session belongs to.
	WorkDate time.Time

	ClockInTime  time.Time
	ClockOutTime *time.Time

	ClockInLatitude   *float64
	ClockInLongitude  *float64
	ClockOutLatitude  *float64
	ClockOutLongitude *float64

	ClockInDistanceMeters  *float64
	ClockOutDistanceMeters *float64
	IsWithinGeofence       bool

	Status Status

	IsLateArrival bool
	MinutesLate   int

	IsEarlyDeparture bool
	MinutesEarly     int
	DepartureReason  *string

	CheckInMethod  CheckMethod
	CheckOutMethod *CheckMethod

	// Idempotency guards against duplicate notifications.
	AdminNotifiedLate      bool
	EarlyDepartureNotified bool
	ClockOutReminderSent   bool

	CreatedAt time.Time
	UpdatedAt time.Time

	// Joined for listings.
	EmployeeName      *string
	Breaks            []Break
	TotalBreakMinutes int
}

// Open reports whether the session has not been checked out yet.
func (r Record) Open() bool {
	return r.ClockOutTime == nil
}

// Break is a pause nested inside an attendance session. At most one break per
// record may be open at a time; an open break is force-closed at checkout.
type Break struct {
	ID           string
	AttendanceID string
	StartTime    time.Time
	EndTime      *time.Time

	// DurationMinutes is computed at close, truncated to whole minutes.
	DurationMinutes *int

	CreatedAt time.Time
}

// ElapsedMinutes returns the break's stored duration, or its elapsed-so-far
// duration relative to now while still open. Live display only; stored
// totals use closed durations.
func (b Break) ElapsedMinutes(now time.Time) int {
	if b.DurationMinutes != nil {
		return *b.DurationMinutes
	}
	if b.EndTime != nil {
		return int(b.EndTime.Sub(b.StartTime).Minutes())
	}
	return int(now.Sub(b.StartTime).Minutes())
}
