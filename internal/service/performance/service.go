package performance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/stafftrack/attendance-backend-go/internal/domain/company"
	"github.com/stafftrack/attendance-backend-go/internal/domain/employee"
	"github.com/stafftrack/attendance-backend-go/internal/domain/notification"
	"github.com/stafftrack/attendance-backend-go/internal/domain/performance"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/cron"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/database"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/workcal"
	"github.com/stafftrack/attendance-backend-go/internal/repository/postgresql"
)

// scoreWindowDays is the rolling window every snapshot and leaderboard
// computation covers.
const scoreWindowDays = 30

// latePenalty and friends are the fixed penalty weights of the scoring
// formula.
const (
	latePenalty        = 5
	earlyPenalty       = 2
	excessLateDivisor  = 10
	taskLatePenalty    = 5
	taskOverduePenalty = 10
)

// SnapshotServiceImpl computes nightly per-employee performance snapshots and
// the live leaderboard. The nightly pass runs each company inside its own
// transaction; one company failing never blocks the rest.
type SnapshotServiceImpl struct {
	policyRepo      company.PolicyRepository
	employeeRepo    employee.Repository
	performanceRepo performance.Repository
	notificationSvc notification.Service
	db              *database.DB

	withTx func(ctx context.Context, fn func(txCtx context.Context) error) error
	clock  func() time.Time
}

func NewSnapshotService(
	policyRepo company.PolicyRepository,
	employeeRepo employee.Repository,
	performanceRepo performance.Repository,
	notificationSvc notification.Service,
	db *database.DB,
) *SnapshotServiceImpl {
	s := &SnapshotServiceImpl{
		policyRepo:      policyRepo,
		employeeRepo:    employeeRepo,
		performanceRepo: performanceRepo,
		notificationSvc: notificationSvc,
		db:              db,
		clock:           time.Now,
	}
	s.withTx = func(ctx context.Context, fn func(txCtx context.Context) error) error {
		return postgresql.WithTransaction(ctx, s.db, fn)
	}
	return s
}

// RegisterJobs wires the nightly aggregation into the scheduler. The job
// ticks hourly and gates itself to each company's local midnight.
func (s *SnapshotServiceImpl) RegisterJobs(scheduler *cron.Scheduler) {
	scheduler.AddJob("nightly_performance_snapshots", 1*time.Hour, s.RunNightlySnapshots)
}

// RunNightlySnapshots recomputes snapshots for every company whose local
// clock reads the midnight hour. Re-running within the hour is harmless; the
// upsert overwrites the same rows.
func (s *SnapshotServiceImpl) RunNightlySnapshots(ctx context.Context) error {
	companyIDs, err := s.policyRepo.ListCompanyIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}

	for _, companyID := range companyIDs {
		policy, err := s.policyRepo.GetPolicy(ctx, companyID)
		if err != nil {
			slog.Error("Failed to load policy for snapshots", "company_id", companyID, "error", err)
			continue
		}

		loc := workcal.LoadLocation(policy.Timezone)
		if s.clock().In(loc).Hour() != 0 {
			continue
		}

		if err := s.withTx(ctx, func(txCtx context.Context) error {
			return s.snapshotCompany(txCtx, policy)
		}); err != nil {
			slog.Error("Nightly snapshot failed", "company_id", companyID, "error", err)
			continue
		}
		slog.Info("Nightly snapshot completed", "company_id", companyID)
		s.notifySnapshotReady(ctx, companyID)
	}

	return nil
}

// notifySnapshotReady tells company admins the overnight scores are in.
// Fire-and-forget, after the transaction committed.
func (s *SnapshotServiceImpl) notifySnapshotReady(ctx context.Context, companyID string) {
	if s.notificationSvc == nil {
		return
	}
	admins, err := s.employeeRepo.ListAdmins(ctx, companyID)
	if err != nil {
		slog.Error("Failed to list admins for snapshot notification", "company_id", companyID, "error", err)
		return
	}
	for _, admin := range admins {
		_ = s.notificationSvc.QueueNotification(ctx, notification.CreateNotificationRequest{
			CompanyID:   companyID,
			RecipientID: admin.UserID,
			Type:        notification.TypePerformanceSnapshot,
			Title:       "Performance Snapshots Updated",
			Message:     "Overnight performance scores and rankings have been recomputed.",
		})
	}
}

// SnapshotCompany recomputes one company's snapshots immediately, outside
// the midnight gate. Admin-triggered recomputes use this path.
func (s *SnapshotServiceImpl) SnapshotCompany(ctx context.Context, companyID string) error {
	policy, err := s.policyRepo.GetPolicy(ctx, companyID)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(txCtx context.Context) error {
		return s.snapshotCompany(txCtx, policy)
	})
}

func (s *SnapshotServiceImpl) snapshotCompany(ctx context.Context, policy company.Policy) error {
	scored, start, end, err := s.scoreCompany(ctx, policy)
	if err != nil {
		return err
	}
	if len(scored) == 0 {
		return nil
	}

	snapshotDate := end
	snapshots := make([]performance.Snapshot, 0, len(scored))
	for _, sc := range scored {
		snapshots = append(snapshots, performance.Snapshot{
			CompanyID:           policy.CompanyID,
			UserID:              sc.userID,
			SnapshotDate:        snapshotDate,
			PeriodType:          performance.PeriodDaily,
			AttendanceScore:     sc.attendanceScore,
			TaskCompletionScore: sc.taskScore,
			OverallScore:        sc.overallScore,
			Tier:                performance.TierForRank(sc.rank),
			RankPosition:        sc.rank,
		})
	}

	if err := s.performanceRepo.UpsertSnapshots(ctx, snapshots); err != nil {
		return fmt.Errorf("failed to upsert snapshots: %w", err)
	}

	slog.Info("Computed performance snapshots",
		"company_id", policy.CompanyID,
		"employees", len(snapshots),
		"window_start", start.Format("2006-01-02"),
		"window_end", end.Format("2006-01-02"))
	return nil
}

// GetLeaderboard computes the live leaderboard over the rolling window. It
// shares the scoring math with the nightly job but tiers by score threshold
// rather than rank; the two tiering rules are knowingly different.
func (s *SnapshotServiceImpl) GetLeaderboard(ctx context.Context, companyID string) (performance.LeaderboardResponse, error) {
	policy, err := s.policyRepo.GetPolicy(ctx, companyID)
	if err != nil {
		return performance.LeaderboardResponse{}, err
	}

	scored, start, end, err := s.scoreCompany(ctx, policy)
	if err != nil {
		return performance.LeaderboardResponse{}, err
	}

	entries := make([]performance.LeaderboardEntry, 0, len(scored))
	for _, sc := range scored {
		entries = append(entries, performance.LeaderboardEntry{
			UserID:              sc.userID,
			EmployeeName:        sc.name,
			AttendanceScore:     sc.attendanceScore,
			TaskCompletionScore: sc.taskScore,
			OverallScore:        sc.overallScore,
			Tier:                string(performance.TierForScore(sc.overallScore)),
			RankPosition:        sc.rank,
		})
	}

	return performance.LeaderboardResponse{
		CompanyID:  companyID,
		PeriodDays: scoreWindowDays,
		StartDate:  start.Format("2006-01-02"),
		EndDate:    end.Format("2006-01-02"),
		Entries:    entries,
	}, nil
}

// GetSnapshots returns a company's stored snapshots for a date, rank order.
func (s *SnapshotServiceImpl) GetSnapshots(ctx context.Context, companyID string, date time.Time) ([]performance.SnapshotResponse, error) {
	snapshots, err := s.performanceRepo.ListSnapshots(ctx, companyID, date, performance.PeriodDaily)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	out := make([]performance.SnapshotResponse, 0, len(snapshots))
	for _, sn := range snapshots {
		out = append(out, performance.SnapshotResponse{
			UserID:              sn.UserID,
			SnapshotDate:        sn.SnapshotDate.Format("2006-01-02"),
			PeriodType:          string(sn.PeriodType),
			AttendanceScore:     sn.AttendanceScore,
			TaskCompletionScore: sn.TaskCompletionScore,
			OverallScore:        sn.OverallScore,
			Tier:                string(sn.Tier),
			RankPosition:        sn.RankPosition,
		})
	}
	return out, nil
}

// ========================================
// scoring
// ========================================

type scoredEmployee struct {
	userID          string
	name            string
	attendanceScore float64
	taskScore       *float64
	overallScore    float64
	rank            int
}

// scoreCompany aggregates, scores, and ranks every active non-owner
// employee over the rolling window.
func (s *SnapshotServiceImpl) scoreCompany(ctx context.Context, policy company.Policy) ([]scoredEmployee, time.Time, time.Time, error) {
	loc := workcal.LoadLocation(policy.Timezone)
	start, end := workcal.ReportingWindow(s.clock(), loc, nil, nil, scoreWindowDays)

	expectedDays := workcal.ExpectedWorkDays(policy.WorkingDays, start, end)

	employees, err := s.employeeRepo.ListActiveByCompany(ctx, policy.CompanyID)
	if err != nil {
		return nil, start, end, fmt.Errorf("failed to list employees: %w", err)
	}

	attendanceStats, err := s.performanceRepo.AggregateAttendanceStats(
		ctx, policy.CompanyID, start, end, policy.GracePeriodMinutes)
	if err != nil {
		return nil, start, end, fmt.Errorf("failed to aggregate attendance: %w", err)
	}
	taskStats, err := s.performanceRepo.AggregateTaskStats(ctx, policy.CompanyID, start, end)
	if err != nil {
		return nil, start, end, fmt.Errorf("failed to aggregate tasks: %w", err)
	}

	attByUser := make(map[string]performance.AttendanceStats, len(attendanceStats))
	for _, st := range attendanceStats {
		attByUser[st.UserID] = st
	}
	tasksByUser := make(map[string]performance.TaskStats, len(taskStats))
	for _, st := range taskStats {
		tasksByUser[st.UserID] = st
	}

	var scored []scoredEmployee
	for _, emp := range employees {
		if emp.IsOwner() {
			continue
		}
		att := attByUser[emp.UserID]
		tasks := tasksByUser[emp.UserID]

		attendanceScore := AttendanceScore(att, expectedDays)
		taskScore := TaskScore(tasks)
		overall := OverallScore(attendanceScore, taskScore, expectedDays,
			policy.AttendanceWeight, policy.TaskCompletionWeight)

		scored = append(scored, scoredEmployee{
			userID:          emp.UserID,
			name:            emp.FullName,
			attendanceScore: attendanceScore,
			taskScore:       taskScore,
			overallScore:    overall,
		})
	}

	rankEmployees(scored)
	return scored, start, end, nil
}

// AttendanceScore applies the attendance scoring formula. Scores are floored
// to whole points, then clamped to [0, 100]. A zero expected-day window
// scores zero.
func AttendanceScore(st performance.AttendanceStats, expectedDays int) float64 {
	if expectedDays <= 0 {
		return 0
	}
	raw := float64(st.PresentDays)/float64(expectedDays)*100 -
		float64(st.LateDays*latePenalty) -
		float64(st.ExcessLateMinutes/excessLateDivisor) -
		float64(st.EarlyDays*earlyPenalty)
	return clampScore(math.Floor(raw))
}

// TaskScore applies the task scoring formula, or nil when no tasks were due
// in the window.
func TaskScore(st performance.TaskStats) *float64 {
	if st.DueTotal <= 0 {
		return nil
	}
	raw := float64(st.CompletedOnTime)/float64(st.DueTotal)*100 -
		float64(st.CompletedLate*taskLatePenalty) -
		float64(st.OverdueOpen*taskOverduePenalty)
	score := clampScore(math.Floor(raw))
	return &score
}

// OverallScore combines the two component scores. With neither component
// applicable the overall score is zero; with one missing, the other stands
// alone; otherwise the weights are normalized by their sum.
func OverallScore(attendanceScore float64, taskScore *float64, expectedDays int, attendanceWeight, taskWeight float64) float64 {
	hasAttendance := expectedDays > 0
	hasTasks := taskScore != nil

	switch {
	case !hasAttendance && !hasTasks:
		return 0
	case !hasTasks:
		return attendanceScore
	case !hasAttendance:
		return *taskScore
	}

	total := attendanceWeight + taskWeight
	if total <= 0 {
		// Degenerate weights fall back to an even split.
		attendanceWeight, taskWeight, total = 1, 1, 2
	}
	return clampScore(attendanceScore*(attendanceWeight/total) + *taskScore*(taskWeight/total))
}

// rankEmployees sorts by overall score descending with userID as the
// deterministic tie-break, then assigns dense 1-based ranks over distinct
// scores.
func rankEmployees(scored []scoredEmployee) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].overallScore != scored[j].overallScore {
			return scored[i].overallScore > scored[j].overallScore
		}
		return scored[i].userID < scored[j].userID
	})

	rank := 0
	prev := math.Inf(1)
	for i := range scored {
		if scored[i].overallScore != prev {
			rank++
			prev = scored[i].overallScore
		}
		scored[i].rank = rank
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
