package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stafftrack/attendance-backend-go/internal/domain/attendance"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/database"
)

const attendanceColumns = `
	id, company_id, user_id, work_date, clock_in_time, clock_out_time,
	clock_in_latitude, clock_in_longitude, clock_out_latitude, clock_out_longitude,
	clock_in_distance_meters, clock_out_distance_meters, is_within_geofence,
	status, is_late_arrival, minutes_late, is_early_departure, minutes_early,
	departure_reason, check_in_method, check_out_method,
	admin_notified_late, early_departure_notified, clock_out_reminder_sent,
	created_at, updated_at`

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func scanAttendance(row pgx.Row) (attendance.Record, error) {
	var r attendance.Record
	err := row.Scan(
		&r.ID, &r.CompanyID, &r.UserID, &r.WorkDate, &r.ClockInTime, &r.ClockOutTime,
		&r.ClockInLatitude, &r.ClockInLongitude, &r.ClockOutLatitude, &r.ClockOutLongitude,
		&r.ClockInDistanceMeters, &r.ClockOutDistanceMeters, &r.IsWithinGeofence,
		&r.Status, &r.IsLateArrival, &r.MinutesLate, &r.IsEarlyDeparture, &r.MinutesEarly,
		&r.DepartureReason, &r.CheckInMethod, &r.CheckOutMethod,
		&r.AdminNotifiedLate, &r.EarlyDepartureNotified, &r.ClockOutReminderSent,
		&r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// CreateRecord implements attendance.Repository. The partial unique index
// over open records per (company_id, user_id, work_date) turns a concurrent
// double clock-in into a unique violation.
func (a *attendanceRepository) CreateRecord(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendance_records (
			company_id, user_id, work_date, clock_in_time,
			clock_in_latitude, clock_in_longitude,
			clock_in_distance_meters, is_within_geofence,
			status, is_late_arrival, minutes_late,
			check_in_method, admin_notified_late
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		record.CompanyID,
		record.UserID,
		record.WorkDate,
		record.ClockInTime,
		record.ClockInLatitude,
		record.ClockInLongitude,
		record.ClockInDistanceMeters,
		record.IsWithinGeofence,
		record.Status,
		record.IsLateArrival,
		record.MinutesLate,
		record.CheckInMethod,
		record.AdminNotifiedLate,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return attendance.Record{}, attendance.ErrAlreadyClockedIn
		}
		return attendance.Record{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	return record, nil
}

// GetByID implements attendance.Repository.
func (a *attendanceRepository) GetByID(ctx context.Context, id, companyID string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT` + attendanceColumns + `
		FROM attendance_records
		WHERE id = $1 AND company_id = $2`

	record, err := scanAttendance(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance record: %w", err)
	}

	return record, nil
}

// GetOpenRecordForDay implements attendance.Repository.
func (a *attendanceRepository) GetOpenRecordForDay(ctx context.Context, userID, companyID, workDate string) (*attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT` + attendanceColumns + `
		FROM attendance_records
		WHERE user_id = $1 AND company_id = $2 AND work_date = $3
		  AND clock_out_time IS NULL
		ORDER BY clock_in_time DESC
		LIMIT 1`

	record, err := scanAttendance(q.QueryRow(ctx, query, userID, companyID, workDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open record: %w", err)
	}

	return &record, nil
}

// HasRecordForDay implements attendance.Repository.
func (a *attendanceRepository) HasRecordForDay(ctx context.Context, userID, companyID, workDate string) (bool, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM attendance_records
			WHERE user_id = $1 AND company_id = $2 AND work_date = $3
		)`

	var exists bool
	if err := q.QueryRow(ctx, query, userID, companyID, workDate).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check record existence: %w", err)
	}
	return exists, nil
}

// FinalizeCheckout implements attendance.Repository. The WHERE clause keeps
// a lost checkout race from producing a second update.
func (a *attendanceRepository) FinalizeCheckout(ctx context.Context, record attendance.Record) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_records SET
			clock_out_time = $1,
			clock_out_latitude = $2,
			clock_out_longitude = $3,
			clock_out_distance_meters = $4,
			status = $5,
			is_early_departure = $6,
			minutes_early = $7,
			departure_reason = $8,
			check_out_method = $9,
			early_departure_notified = $10,
			updated_at = NOW()
		WHERE id = $11 AND company_id = $12 AND clock_out_time IS NULL
	`

	tag, err := q.Exec(ctx, query,
		record.ClockOutTime,
		record.ClockOutLatitude,
		record.ClockOutLongitude,
		record.ClockOutDistanceMeters,
		record.Status,
		record.IsEarlyDeparture,
		record.MinutesEarly,
		record.DepartureReason,
		record.CheckOutMethod,
		record.EarlyDepartureNotified,
		record.ID,
		record.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize checkout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAlreadyCheckedOut
	}

	return nil
}

// List implements attendance.Repository. Breaks for the whole page are
// loaded with one extra query, never one per record.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.ListFilter, companyID string) ([]attendance.Record, int64, error) {
	q := GetQuerier(ctx, a.db)

	where := `WHERE ar.company_id = $1`
	args := []interface{}{companyID}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		where += fmt.Sprintf(` AND ar.user_id = $%d`, len(args))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		where += fmt.Sprintf(` AND ar.work_date >= $%d`, len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		where += fmt.Sprintf(` AND ar.work_date <= $%d`, len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(` AND ar.status = $%d`, len(args))
	}

	countQuery := `SELECT COUNT(*) FROM attendance_records ar ` + where
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance records: %w", err)
	}

	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	query := `
		SELECT ar.id, ar.company_id, ar.user_id, ar.work_date, ar.clock_in_time, ar.clock_out_time,
			   ar.clock_in_latitude, ar.clock_in_longitude, ar.clock_out_latitude, ar.clock_out_longitude,
			   ar.clock_in_distance_meters, ar.clock_out_distance_meters, ar.is_within_geofence,
			   ar.status, ar.is_late_arrival, ar.minutes_late, ar.is_early_departure, ar.minutes_early,
			   ar.departure_reason, ar.check_in_method, ar.check_out_method,
			   ar.admin_notified_late, ar.early_departure_notified, ar.clock_out_reminder_sent,
			   ar.created_at, ar.updated_at,
			   e.full_name
		FROM attendance_records ar
		LEFT JOIN employees e ON e.user_id = ar.user_id AND e.company_id = ar.company_id
		` + where + `
		ORDER BY ar.work_date DESC, ar.clock_in_time DESC
		LIMIT $` + fmt.Sprint(len(args)-1) + ` OFFSET $` + fmt.Sprint(len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	var recordIDs []string
	for rows.Next() {
		var r attendance.Record
		err := rows.Scan(
			&r.ID, &r.CompanyID, &r.UserID, &r.WorkDate, &r.ClockInTime, &r.ClockOutTime,
			&r.ClockInLatitude, &r.ClockInLongitude, &r.ClockOutLatitude, &r.ClockOutLongitude,
			&r.ClockInDistanceMeters, &r.ClockOutDistanceMeters, &r.IsWithinGeofence,
			&r.Status, &r.IsLateArrival, &r.MinutesLate, &r.IsEarlyDeparture, &r.MinutesEarly,
			&r.DepartureReason, &r.CheckInMethod, &r.CheckOutMethod,
			&r.AdminNotifiedLate, &r.EarlyDepartureNotified, &r.ClockOutReminderSent,
			&r.CreatedAt, &r.UpdatedAt,
			&r.EmployeeName,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, r)
		recordIDs = append(recordIDs, r.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate attendance records: %w", err)
	}

	breaksByRecord, err := a.ListBreaksByRecordIDs(ctx, recordIDs)
	if err != nil {
		return nil, 0, err
	}
	for i := range records {
		records[i].Breaks = breaksByRecord[records[i].ID]
		for _, b := range records[i].Breaks {
			if b.DurationMinutes != nil {
				records[i].TotalBreakMinutes += *b.DurationMinutes
			}
		}
	}

	return records, total, nil
}

// ListOpenForDate implements attendance.Repository.
func (a *attendanceRepository) ListOpenForDate(ctx context.Context, companyID, workDate string) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT` + attendanceColumns + `
		FROM attendance_records
		WHERE company_id = $1 AND work_date = $2
		  AND clock_out_time IS NULL
		  AND clock_out_reminder_sent = FALSE`

	rows, err := q.Query(ctx, query, companyID, workDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list open records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		record, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan open record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// MarkReminderSent implements attendance.Repository.
func (a *attendanceRepository) MarkReminderSent(ctx context.Context, id, companyID string) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_records
		SET clock_out_reminder_sent = TRUE, updated_at = NOW()
		WHERE id = $1 AND company_id = $2`

	if _, err := q.Exec(ctx, query, id, companyID); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}

// CreateBreak implements attendance.Repository. The status flip and the
// break insert share one statement so they cannot diverge. A partial unique
// index over open breaks per attendance_id makes two concurrent starts race
// on a unique violation rather than both inserting.
func (a *attendanceRepository) CreateBreak(ctx context.Context, recordID, companyID string, start time.Time) (attendance.Break, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		WITH flipped AS (
			UPDATE attendance_records
			SET status = 'on_break', updated_at = NOW()
			WHERE id = $1 AND company_id = $2 AND clock_out_time IS NULL
			RETURNING id
		)
		INSERT INTO attendance_breaks (attendance_id, start_time)
		SELECT id, $3 FROM flipped
		RETURNING id, attendance_id, start_time, created_at
	`

	var b attendance.Break
	err := q.QueryRow(ctx, query, recordID, companyID, start).Scan(
		&b.ID, &b.AttendanceID, &b.StartTime, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Break{}, attendance.ErrNotClockedIn
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return attendance.Break{}, attendance.ErrBreakAlreadyActive
		}
		return attendance.Break{}, fmt.Errorf("failed to create break: %w", err)
	}

	return b, nil
}

// GetOpenBreak implements attendance.Repository.
func (a *attendanceRepository) GetOpenBreak(ctx context.Context, recordID string) (*attendance.Break, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT id, attendance_id, start_time, end_time, duration_minutes, created_at
		FROM attendance_breaks
		WHERE attendance_id = $1 AND end_time IS NULL
		ORDER BY start_time DESC
		LIMIT 1`

	var b attendance.Break
	err := q.QueryRow(ctx, query, recordID).Scan(
		&b.ID, &b.AttendanceID, &b.StartTime, &b.EndTime, &b.DurationMinutes, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open break: %w", err)
	}

	return &b, nil
}

// CloseBreak implements attendance.Repository.
func (a *attendanceRepository) CloseBreak(ctx context.Context, breakID string, end time.Time, durationMinutes int, restoreStatus attendance.Status) (attendance.Break, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		WITH closed AS (
			UPDATE attendance_breaks
			SET end_time = $1, duration_minutes = $2
			WHERE id = $3 AND end_time IS NULL
			RETURNING id, attendance_id, start_time, end_time, duration_minutes, created_at
		), restored AS (
			UPDATE attendance_records
			SET status = $4, updated_at = NOW()
			WHERE id = (SELECT attendance_id FROM closed)
		)
		SELECT id, attendance_id, start_time, end_time, duration_minutes, created_at FROM closed
	`

	var b attendance.Break
	err := q.QueryRow(ctx, query, end, durationMinutes, breakID, restoreStatus).Scan(
		&b.ID, &b.AttendanceID, &b.StartTime, &b.EndTime, &b.DurationMinutes, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Break{}, attendance.ErrNoActiveBreak
		}
		return attendance.Break{}, fmt.Errorf("failed to close break: %w", err)
	}

	return b, nil
}

// ListBreaksByRecordIDs implements attendance.Repository.
func (a *attendanceRepository) ListBreaksByRecordIDs(ctx context.Context, recordIDs []string) (map[string][]attendance.Break, error) {
	out := make(map[string][]attendance.Break, len(recordIDs))
	if len(recordIDs) == 0 {
		return out, nil
	}

	q := GetQuerier(ctx, a.db)

	query := `
		SELECT id, attendance_id, start_time, end_time, duration_minutes, created_at
		FROM attendance_breaks
		WHERE attendance_id = ANY($1)
		ORDER BY start_time ASC`

	rows, err := q.Query(ctx, query, recordIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list breaks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b attendance.Break
		if err := rows.Scan(&b.ID, &b.AttendanceID, &b.StartTime, &b.EndTime, &b.DurationMinutes, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan break: %w", err)
		}
		out[b.AttendanceID] = append(out[b.AttendanceID], b)
	}
	return out, rows.Err()
}
