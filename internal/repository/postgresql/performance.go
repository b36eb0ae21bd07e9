package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/stafftrack/attendance-backend-go/internal/domain/performance"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/database"
)

type performanceRepository struct {
	db *database.DB
}

func NewPerformanceRepository(db *database.DB) performance.Repository {
	return &performanceRepository{db: db}
}

// AggregateAttendanceStats implements performance.Repository. Excess late
// minutes are computed in SQL against the grace period so the whole window
// aggregates in one pass.
func (r *performanceRepository) AggregateAttendanceStats(ctx context.Context, companyID string, start, end time.Time, graceMinutes int) ([]performance.AttendanceStats, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT user_id,
			   COUNT(*) FILTER (WHERE status <> 'absent') AS present_days,
			   COUNT(*) FILTER (WHERE is_late_arrival) AS late_days,
			   COUNT(*) FILTER (WHERE is_early_departure) AS early_days,
			   COALESCE(SUM(GREATEST(minutes_late - $4, 0)) FILTER (WHERE is_late_arrival), 0) AS excess_late_minutes
		FROM attendance_records
		WHERE company_id = $1
		  AND work_date BETWEEN $2 AND $3
		GROUP BY user_id`

	rows, err := q.Query(ctx, query, companyID, start, end, graceMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate attendance stats: %w", err)
	}
	defer rows.Close()

	var stats []performance.AttendanceStats
	for rows.Next() {
		var s performance.AttendanceStats
		if err := rows.Scan(&s.UserID, &s.PresentDays, &s.LateDays, &s.EarlyDays, &s.ExcessLateMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan attendance stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// AggregateTaskStats implements performance.Repository. Task rows are
// read-only here.
func (r *performanceRepository) AggregateTaskStats(ctx context.Context, companyID string, start, end time.Time) ([]performance.TaskStats, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT assignee_id,
			   COUNT(*) AS due_total,
			   COUNT(*) FILTER (WHERE completed_at IS NOT NULL AND completed_at <= due_date) AS completed_on_time,
			   COUNT(*) FILTER (WHERE completed_at IS NOT NULL AND completed_at > due_date) AS completed_late,
			   COUNT(*) FILTER (WHERE completed_at IS NULL AND due_date < NOW()) AS overdue_open
		FROM tasks
		WHERE company_id = $1
		  AND due_date BETWEEN $2 AND $3
		GROUP BY assignee_id`

	rows, err := q.Query(ctx, query, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate task stats: %w", err)
	}
	defer rows.Close()

	var stats []performance.TaskStats
	for rows.Next() {
		var s performance.TaskStats
		if err := rows.Scan(&s.UserID, &s.DueTotal, &s.CompletedOnTime, &s.CompletedLate, &s.OverdueOpen); err != nil {
			return nil, fmt.Errorf("failed to scan task stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// UpsertSnapshots implements performance.Repository.
func (r *performanceRepository) UpsertSnapshots(ctx context.Context, snapshots []performance.Snapshot) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO performance_snapshots (
			company_id, user_id, snapshot_date, period_type,
			attendance_score, task_completion_score, overall_score,
			tier, rank_position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (company_id, user_id, snapshot_date, period_type) DO UPDATE SET
			attendance_score = EXCLUDED.attendance_score,
			task_completion_score = EXCLUDED.task_completion_score,
			overall_score = EXCLUDED.overall_score,
			tier = EXCLUDED.tier,
			rank_position = EXCLUDED.rank_position,
			updated_at = NOW()`

	for _, s := range snapshots {
		_, err := q.Exec(ctx, query,
			s.CompanyID, s.UserID, s.SnapshotDate, s.PeriodType,
			s.AttendanceScore, s.TaskCompletionScore, s.OverallScore,
			s.Tier, s.RankPosition,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert snapshot for user %s: %w", s.UserID, err)
		}
	}
	return nil
}

// ListSnapshots implements performance.Repository.
func (r *performanceRepository) ListSnapshots(ctx context.Context, companyID string, date time.Time, periodType performance.PeriodType) ([]performance.Snapshot, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, user_id, snapshot_date, period_type,
			   attendance_score, task_completion_score, overall_score,
			   tier, rank_position, created_at, updated_at
		FROM performance_snapshots
		WHERE company_id = $1 AND snapshot_date = $2 AND period_type = $3
		ORDER BY rank_position, user_id`

	rows, err := q.Query(ctx, query, companyID, date, periodType)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []performance.Snapshot
	for rows.Next() {
		var s performance.Snapshot
		err := rows.Scan(&s.ID, &s.CompanyID, &s.UserID, &s.SnapshotDate, &s.PeriodType,
			&s.AttendanceScore, &s.TaskCompletionScore, &s.OverallScore,
			&s.Tier, &s.RankPosition, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
