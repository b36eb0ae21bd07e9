package performance

import (
	"context"
	"time"
)

// Repository aggregates attendance and task data for scoring and persists
// snapshots. Task rows are read-only to this engine.
type Repository interface {
	// AggregateAttendanceStats computes per-employee attendance aggregates
	// over [start, end]. Excess late minutes are computed against
	// graceMinutes inside the query.
	AggregateAttendanceStats(ctx context.Context, companyID string, start, end time.Time, graceMinutes int) ([]AttendanceStats, error)

	// AggregateTaskStats computes per-assignee task aggregates over tasks
	// due within [start, end].
	AggregateTaskStats(ctx context.Context, companyID string, start, end time.Time) ([]TaskStats, error)

	// UpsertSnapshots writes one snapshot per employee, overwriting on the
	// (company, user, date, period type) conflict.
	UpsertSnapshots(ctx context.Context, snapshots []Snapshot) error

	// ListSnapshots returns a company's snapshots for a date, rank order.
	ListSnapshots(ctx context.Context, companyID string, date time.Time, periodType PeriodType) ([]Snapshot, error)
}
