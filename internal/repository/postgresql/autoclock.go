package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/stafftrack/attendance-backend-go/internal/domain/autoclock"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/database"
)

type autoclockRepository struct {
	db *database.DB
}

func NewAutoclockRepository(db *database.DB) autoclock.Repository {
	return &autoclockRepository{db: db}
}

// EnqueueJob implements autoclock.Repository. De-duplication is the unique
// constraint on (company_id, work_date, job_type); concurrent schedulers
// racing here is expected and harmless.
func (r *autoclockRepository) EnqueueJob(ctx context.Context, companyID string, workDate time.Time, jobType autoclock.JobType) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO auto_attendance_jobs (company_id, work_date, job_type, status, scheduled_at)
		VALUES ($1, $2, $3, 'pending', NOW())
		ON CONFLICT (company_id, work_date, job_type) DO NOTHING`

	tag, err := q.Exec(ctx, query, companyID, workDate, jobType)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DequeuePending implements autoclock.Repository. SKIP LOCKED keeps
// concurrent processors off each other's jobs.
func (r *autoclockRepository) DequeuePending(ctx context.Context, limit int) ([]autoclock.Job, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE auto_attendance_jobs
		SET status = 'processing', started_at = NOW()
		WHERE id IN (
			SELECT id FROM auto_attendance_jobs
			WHERE status = 'pending'
			ORDER BY scheduled_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, company_id, work_date, job_type, status,
				  processed_count, error_count, error_message,
				  scheduled_at, started_at, finished_at`

	rows, err := q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue jobs: %w", err)
	}
	defer rows.Close()

	var jobs []autoclock.Job
	for rows.Next() {
		var j autoclock.Job
		err := rows.Scan(&j.ID, &j.CompanyID, &j.WorkDate, &j.Type, &j.Status,
			&j.ProcessedCount, &j.ErrorCount, &j.ErrorMessage,
			&j.ScheduledAt, &j.StartedAt, &j.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// CompleteJob implements autoclock.Repository.
func (r *autoclockRepository) CompleteJob(ctx context.Context, jobID string, processed, errored int) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE auto_attendance_jobs
		SET status = 'completed', processed_count = $1, error_count = $2, finished_at = NOW()
		WHERE id = $3`

	if _, err := q.Exec(ctx, query, processed, errored, jobID); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// FailJob implements autoclock.Repository.
func (r *autoclockRepository) FailJob(ctx context.Context, jobID string, message string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE auto_attendance_jobs
		SET status = 'failed', error_message = $1, finished_at = NOW()
		WHERE id = $2`

	if _, err := q.Exec(ctx, query, message, jobID); err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	return nil
}

// InsertPing implements autoclock.Repository.
func (r *autoclockRepository) InsertPing(ctx context.Context, ping autoclock.LocationPing) (autoclock.LocationPing, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO location_pings (
			company_id, user_id, latitude, longitude,
			is_inside_geofence, permission_state, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := q.QueryRow(ctx, query,
		ping.CompanyID, ping.UserID, ping.Latitude, ping.Longitude,
		ping.IsInsideGeofence, ping.PermissionState, ping.CreatedAt,
	).Scan(&ping.ID)
	if err != nil {
		return autoclock.LocationPing{}, fmt.Errorf("failed to insert ping: %w", err)
	}

	return ping, nil
}

// ListClockInCandidates implements autoclock.Repository. A candidate is an
// active employee with no record for the work date whose latest ping is
// fresh and granted.
func (r *autoclockRepository) ListClockInCandidates(ctx context.Context, companyID, workDate string, freshness time.Duration, requireInside bool) ([]autoclock.Candidate, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT e.user_id, lp.id, lp.company_id, lp.user_id,
			   lp.latitude, lp.longitude, lp.is_inside_geofence,
			   lp.permission_state, lp.created_at
		FROM employees e
		JOIN LATERAL (
			SELECT * FROM location_pings p
			WHERE p.user_id = e.user_id AND p.company_id = e.company_id
			ORDER BY p.created_at DESC
			LIMIT 1
		) lp ON TRUE
		WHERE e.company_id = $1
		  AND e.is_active = TRUE AND e.deleted_at IS NULL
		  AND lp.permission_state = 'granted'
		  AND lp.created_at >= NOW() - $2::interval
		  AND ($3 = FALSE OR lp.is_inside_geofence = TRUE)
		  AND NOT EXISTS (
			SELECT 1 FROM attendance_records ar
			WHERE ar.user_id = e.user_id AND ar.company_id = e.company_id
			  AND ar.work_date = $4
		  )`

	rows, err := q.Query(ctx, query, companyID, freshness.String(), requireInside, workDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list clock-in candidates: %w", err)
	}
	defer rows.Close()

	var candidates []autoclock.Candidate
	for rows.Next() {
		var c autoclock.Candidate
		err := rows.Scan(&c.UserID, &c.Ping.ID, &c.Ping.CompanyID, &c.Ping.UserID,
			&c.Ping.Latitude, &c.Ping.Longitude, &c.Ping.IsInsideGeofence,
			&c.Ping.PermissionState, &c.Ping.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// ListClockOutCandidates implements autoclock.Repository. The sustained
// check requires that no ping inside the geofence exists within the
// sustainedOutside window, so a brief GPS wobble back inside resets it.
func (r *autoclockRepository) ListClockOutCandidates(ctx context.Context, companyID, workDate string, freshness, sustainedOutside time.Duration) ([]autoclock.Candidate, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ar.user_id, ar.id, lp.id, lp.company_id, lp.user_id,
			   lp.latitude, lp.longitude, lp.is_inside_geofence,
			   lp.permission_state, lp.created_at
		FROM attendance_records ar
		JOIN LATERAL (
			SELECT * FROM location_pings p
			WHERE p.user_id = ar.user_id AND p.company_id = ar.company_id
			ORDER BY p.created_at DESC
			LIMIT 1
		) lp ON TRUE
		WHERE ar.company_id = $1
		  AND ar.work_date = $2
		  AND ar.clock_out_time IS NULL
		  AND lp.permission_state = 'granted'
		  AND lp.is_inside_geofence = FALSE
		  AND lp.created_at >= NOW() - $3::interval
		  AND NOT EXISTS (
			SELECT 1 FROM location_pings p2
			WHERE p2.user_id = ar.user_id AND p2.company_id = ar.company_id
			  AND p2.is_inside_geofence = TRUE
			  AND p2.created_at >= NOW() - $4::interval
		  )`

	rows, err := q.Query(ctx, query, companyID, workDate, freshness.String(), sustainedOutside.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list clock-out candidates: %w", err)
	}
	defer rows.Close()

	var candidates []autoclock.Candidate
	for rows.Next() {
		var c autoclock.Candidate
		err := rows.Scan(&c.UserID, &c.AttendanceID, &c.Ping.ID, &c.Ping.CompanyID, &c.Ping.UserID,
			&c.Ping.Latitude, &c.Ping.Longitude, &c.Ping.IsInsideGeofence,
			&c.Ping.PermissionState, &c.Ping.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
