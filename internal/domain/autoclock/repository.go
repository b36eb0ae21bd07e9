package autoclock

import (
	"context"
	"time"
)

// Repository persists scheduler jobs and reads the location-ping feed.
type Repository interface {
	// EnqueueJob inserts a pending job unless one already exists for the
	// same company, work date, and type. Returns false when de-duplicated.
	// De-duplication relies on the unique constraint, not an in-memory check.
	EnqueueJob(ctx context.Context, companyID string, workDate time.Time, jobType JobType) (bool, error)

	// DequeuePending claims up to limit pending jobs, marking them
	// processing. Uses row locking so concurrent processors never claim the
	// same job.
	DequeuePending(ctx context.Context, limit int) ([]Job, error)

	// CompleteJob marks a job completed with its counters.
	CompleteJob(ctx context.Context, jobID string, processed, errored int) error

	// FailJob marks a job failed with an error message.
	FailJob(ctx context.Context, jobID string, message string) error

	// InsertPing stores one device-location signal.
	InsertPing(ctx context.Context, ping LocationPing) (LocationPing, error)

	// ListClockInCandidates returns employees of the company lacking an
	// attendance record for workDate whose most recent ping is no older than
	// freshness and has permission granted. When requireInside is set, the
	// ping must also be inside the geofence.
	ListClockInCandidates(ctx context.Context, companyID, workDate string, freshness time.Duration, requireInside bool) ([]Candidate, error)

	// ListClockOutCandidates returns employees with an open record for
	// workDate whose most recent fresh ping is outside the geofence with
	// permission granted, and who have been continuously outside for at
	// least sustainedOutside.
	ListClockOutCandidates(ctx context.Context, companyID, workDate string, freshness, sustainedOutside time.Duration) ([]Candidate, error)
}
