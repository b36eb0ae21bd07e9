package attendance

import (
	"context"
	"time"
)

// Repository defines data access for attendance records and breaks. All
// methods take companyID to prevent cross-company data access.
type Repository interface {
	// CreateRecord inserts a new attendance record. Concurrent clock-ins for
	// the same user and day race on a partial unique index over open records;
	// the loser surfaces ErrAlreadyClockedIn.
	CreateRecord(ctx context.Context, record Record) (Record, error)

	// GetByID retrieves a record with company isolation.
	GetByID(ctx context.Context, id, companyID string) (Record, error)

	// GetOpenRecordForDay returns the open (not clocked out) record for the
	// given company-local work date, or nil when none exists.
	GetOpenRecordForDay(ctx context.Context, userID, companyID, workDate string) (*Record, error)

	// HasRecordForDay reports whether any record (open or closed) exists for
	// the given work date. Gates single-clock-in-per-day companies.
	HasRecordForDay(ctx context.Context, userID, companyID, workDate string) (bool, error)

	// FinalizeCheckout writes the checkout fields. The update is conditional
	// on clock_out_time still being NULL; a lost race or repeated call
	// returns ErrAlreadyCheckedOut.
	FinalizeCheckout(ctx context.Context, record Record) error

	// List retrieves records with filters, pagination, and breaks aggregated
	// in a single extra query (never one query per record).
	List(ctx context.Context, filter ListFilter, companyID string) ([]Record, int64, error)

	// ListOpenForDate returns still-open records for a work date that have
	// not had a clock-out reminder sent yet.
	ListOpenForDate(ctx context.Context, companyID, workDate string) ([]Record, error)

	// MarkReminderSent flips the clock_out_reminder_sent guard.
	MarkReminderSent(ctx context.Context, id, companyID string) error

	// --- Breaks ---

	// CreateBreak opens a break and flips the record status to on_break.
	// Concurrent starts race on a partial unique index over open breaks per
	// record; the loser surfaces ErrBreakAlreadyActive.
	CreateBreak(ctx context.Context, recordID, companyID string, start time.Time) (Break, error)

	// GetOpenBreak returns the record's open break, or nil.
	GetOpenBreak(ctx context.Context, recordID string) (*Break, error)

	// CloseBreak closes a break and restores the record status.
	CloseBreak(ctx context.Context, breakID string, end time.Time, durationMinutes int, restoreStatus Status) (Break, error)

	// ListBreaksByRecordIDs fetches breaks for many records in one query.
	ListBreaksByRecordIDs(ctx context.Context, recordIDs []string) (map[string][]Break, error)
}
