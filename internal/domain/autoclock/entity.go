package autoclock

import (
	"time"
)

// JobType distinguishes the two auto-attendance passes.
type JobType string

const (
	JobClockIn  JobType = "clock_in"
	JobClockOut JobType = "clock_out"
)

// JobStatus is the lifecycle of a persisted scheduler job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is one persisted auto-attendance unit of work: one company, one
// company-local work date, one type. A unique constraint over
// (company_id, work_date, job_type) keeps scheduling idempotent across
// concurrently running schedulers.
type Job struct {
	ID        string
	CompanyID string
	WorkDate  time.Time
	Type      JobType
	Status    JobStatus

	ProcessedCount int
	ErrorCount     int
	ErrorMessage   *string

	ScheduledAt time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
}

// PermissionState mirrors the browser/device geolocation permission.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// LocationPing is one device-location signal from an employee's device. The
// scheduler only acts on pings inside a short freshness window.
type LocationPing struct {
	ID               string
	CompanyID        string
	UserID           string
	Latitude         float64
	Longitude        float64
	IsInsideGeofence bool
	PermissionState  PermissionState
	CreatedAt        time.Time
}

// Candidate is an employee the processing phase selected for an auto clock
// event, together with the ping that qualified them.
type Candidate struct {
	UserID       string
	AttendanceID string // open record, clock-out only
	Ping         LocationPing
}
