package autoclock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stafftrack/attendance-backend-go/internal/domain/attendance"
	"github.com/stafftrack/attendance-backend-go/internal/domain/autoclock"
	"github.com/stafftrack/attendance-backend-go/internal/domain/company"
	"github.com/stafftrack/attendance-backend-go/internal/domain/notification"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/cron"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/workcal"
)

const (
	// clockOutWindow is how long past work end the auto clock-out pass
	// stays eligible.
	clockOutWindow = 60 * time.Minute

	// reminderDelay and reminderWindow bound the forgotten-clock-out sweep
	// to roughly an hour past work end.
	reminderDelay  = 60 * time.Minute
	reminderWindow = 5 * time.Minute

	// pingFreshness is the maximum age of a usable device-location ping
	// during candidate selection.
	pingFreshness = 3 * time.Minute

	// sustainedOutside is how long an employee must have been continuously
	// outside the geofence before an auto clock-out fires.
	sustainedOutside = 30 * time.Minute

	jobBatchSize = 10
)

// SchedulerServiceImpl runs the two-phase auto-attendance flow: a scheduling
// pass persists at most one job per company, work date, and type, and a
// processing pass drains pending jobs through the same policy engine manual
// clock events go through.
type SchedulerServiceImpl struct {
	policyRepo      company.PolicyRepository
	autoclockRepo   autoclock.Repository
	attendanceRepo  attendance.Repository
	attendanceSvc   attendance.Service
	notificationSvc notification.Service

	// interCallDelay spaces the per-employee policy-engine calls inside a
	// job so a big company does not spike the database.
	interCallDelay time.Duration

	clock func() time.Time
}

func NewSchedulerService(
	policyRepo company.PolicyRepository,
	autoclockRepo autoclock.Repository,
	attendanceRepo attendance.Repository,
	attendanceSvc attendance.Service,
	notificationSvc notification.Service,
) *SchedulerServiceImpl {
	return &SchedulerServiceImpl{
		policyRepo:      policyRepo,
		autoclockRepo:   autoclockRepo,
		attendanceRepo:  attendanceRepo,
		attendanceSvc:   attendanceSvc,
		notificationSvc: notificationSvc,
		interCallDelay:  200 * time.Millisecond,
		clock:           time.Now,
	}
}

// RegisterJobs wires the three periodic passes into the scheduler.
func (s *SchedulerServiceImpl) RegisterJobs(scheduler *cron.Scheduler) {
	scheduler.AddJob("auto_attendance_schedule", 2*time.Minute, s.ScheduleJobs)
	scheduler.AddJob("auto_attendance_process", 2*time.Minute, s.ProcessJobs)
	scheduler.AddJob("clock_out_reminders", 5*time.Minute, s.RemindMissingClockOuts)
}

// ScheduleJobs is the scheduling phase. For every company with auto
// attendance enabled whose local clock sits inside a clock-in or clock-out
// window, it enqueues one persisted job. The unique constraint on the job
// table makes repeated passes through the same window harmless.
func (s *SchedulerServiceImpl) ScheduleJobs(ctx context.Context) error {
	policies, err := s.policyRepo.ListAutoClockCompanies(ctx)
	if err != nil {
		return fmt.Errorf("failed to list auto-clock companies: %w", err)
	}

	for _, policy := range policies {
		loc := workcal.LoadLocation(policy.Timezone)
		nowLocal := s.clock().In(loc)

		if !workcal.IsWorkingDay(nowLocal, policy.WorkingDays, loc) {
			continue
		}

		workDate := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, loc)
		workStart := atTimeOfDay(nowLocal, policy.WorkStartTime, loc)
		workEnd := atTimeOfDay(nowLocal, policy.WorkEndTime, loc)
		grace := time.Duration(policy.GracePeriodMinutes) * time.Minute

		if policy.AutoClockInEnabled && within(nowLocal, workStart, workStart.Add(grace)) {
			s.enqueue(ctx, policy.CompanyID, workDate, autoclock.JobClockIn)
		}
		if policy.AutoClockOutEnabled && within(nowLocal, workEnd, workEnd.Add(clockOutWindow)) {
			s.enqueue(ctx, policy.CompanyID, workDate, autoclock.JobClockOut)
		}
	}

	return nil
}

func (s *SchedulerServiceImpl) enqueue(ctx context.Context, companyID string, workDate time.Time, jobType autoclock.JobType) {
	created, err := s.autoclockRepo.EnqueueJob(ctx, companyID, workDate, jobType)
	if err != nil {
		slog.Error("Failed to enqueue auto-attendance job",
			"company_id", companyID, "job_type", jobType, "error", err)
		return
	}
	if created {
		slog.Info("Enqueued auto-attendance job",
			"company_id", companyID, "job_type", jobType,
			"work_date", workDate.Format("2006-01-02"))
	}
}

// ProcessJobs is the processing phase. It drains a bounded batch of pending
// jobs; each job runs its company's candidates through the policy engine one
// by one. Per-employee failures are counted, never fatal to the job.
func (s *SchedulerServiceImpl) ProcessJobs(ctx context.Context) error {
	jobs, err := s.autoclockRepo.DequeuePending(ctx, jobBatchSize)
	if err != nil {
		return fmt.Errorf("failed to dequeue jobs: %w", err)
	}

	for _, job := range jobs {
		processed, errored, err := s.processJob(ctx, job)
		if err != nil {
			slog.Error("Auto-attendance job failed",
				"job_id", job.ID, "company_id", job.CompanyID,
				"job_type", job.Type, "error", err)
			if ferr := s.autoclockRepo.FailJob(ctx, job.ID, err.Error()); ferr != nil {
				slog.Error("Failed to mark job failed", "job_id", job.ID, "error", ferr)
			}
			continue
		}

		if cerr := s.autoclockRepo.CompleteJob(ctx, job.ID, processed, errored); cerr != nil {
			slog.Error("Failed to mark job completed", "job_id", job.ID, "error", cerr)
			continue
		}
		slog.Info("Auto-attendance job completed",
			"job_id", job.ID, "company_id", job.CompanyID, "job_type", job.Type,
			"processed", processed, "errors", errored)
	}

	return nil
}

func (s *SchedulerServiceImpl) processJob(ctx context.Context, job autoclock.Job) (processed, errored int, err error) {
	policy, err := s.policyRepo.GetPolicy(ctx, job.CompanyID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load policy: %w", err)
	}

	workDate := job.WorkDate.Format("2006-01-02")

	var candidates []autoclock.Candidate
	switch job.Type {
	case autoclock.JobClockIn:
		candidates, err = s.autoclockRepo.ListClockInCandidates(
			ctx, job.CompanyID, workDate, pingFreshness, policy.RequireGeofenceForClockIn)
	case autoclock.JobClockOut:
		candidates, err = s.autoclockRepo.ListClockOutCandidates(
			ctx, job.CompanyID, workDate, pingFreshness, sustainedOutside)
	default:
		return 0, 0, fmt.Errorf("unknown job type %q", job.Type)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list candidates: %w", err)
	}

	for i, candidate := range candidates {
		if i > 0 && s.interCallDelay > 0 {
			select {
			case <-ctx.Done():
				return processed, errored, ctx.Err()
			case <-time.After(s.interCallDelay):
			}
		}

		if cerr := s.clockCandidate(ctx, job.Type, job.CompanyID, candidate); cerr != nil {
			errored++
			slog.Warn("Auto-attendance skipped employee",
				"job_id", job.ID, "user_id", candidate.UserID,
				"job_type", job.Type, "reason", cerr)
			continue
		}
		processed++
	}

	return processed, errored, nil
}

func (s *SchedulerServiceImpl) clockCandidate(ctx context.Context, jobType autoclock.JobType, companyID string, candidate autoclock.Candidate) error {
	lat := candidate.Ping.Latitude
	lon := candidate.Ping.Longitude

	switch jobType {
	case autoclock.JobClockIn:
		resp, err := s.attendanceSvc.CheckIn(ctx, attendance.CheckInRequest{
			UserID:    candidate.UserID,
			CompanyID: companyID,
			Latitude:  &lat,
			Longitude: &lon,
			Method:    attendance.MethodAuto,
		})
		if err != nil {
			return err
		}
		s.notifyAutoEvent(ctx, companyID, candidate.UserID, notification.TypeAutoClockIn,
			"Automatically Clocked In",
			"You were clocked in automatically based on your device location",
			resp.ID)
		return nil

	case autoclock.JobClockOut:
		resp, err := s.attendanceSvc.CheckOut(ctx, attendance.CheckOutRequest{
			UserID:       candidate.UserID,
			CompanyID:    companyID,
			AttendanceID: candidate.AttendanceID,
			Latitude:     &lat,
			Longitude:    &lon,
			Method:       attendance.MethodAuto,
		})
		if err != nil {
			return err
		}
		s.notifyAutoEvent(ctx, companyID, candidate.UserID, notification.TypeAutoClockOut,
			"Automatically Clocked Out",
			"You were clocked out automatically after leaving the office area",
			resp.ID)
		return nil
	}

	return fmt.Errorf("unknown job type %q", jobType)
}

// RemindMissingClockOuts scans, roughly an hour past each company's work
// end, for records still open and nudges their owners. Records are never
// auto-closed here.
func (s *SchedulerServiceImpl) RemindMissingClockOuts(ctx context.Context) error {
	companyIDs, err := s.policyRepo.ListCompanyIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}

	for _, companyID := range companyIDs {
		policy, err := s.policyRepo.GetPolicy(ctx, companyID)
		if err != nil {
			slog.Error("Failed to load policy for reminders", "company_id", companyID, "error", err)
			continue
		}

		loc := workcal.LoadLocation(policy.Timezone)
		nowLocal := s.clock().In(loc)
		workEnd := atTimeOfDay(nowLocal, policy.WorkEndTime, loc)

		if !within(nowLocal, workEnd.Add(reminderDelay), workEnd.Add(reminderDelay+reminderWindow)) {
			continue
		}

		workDate := nowLocal.Format("2006-01-02")
		open, err := s.attendanceRepo.ListOpenForDate(ctx, companyID, workDate)
		if err != nil {
			slog.Error("Failed to list open records", "company_id", companyID, "error", err)
			continue
		}

		for _, record := range open {
			if record.ClockOutReminderSent {
				continue
			}
			if err := s.attendanceRepo.MarkReminderSent(ctx, record.ID, companyID); err != nil {
				slog.Error("Failed to mark reminder sent",
					"attendance_id", record.ID, "error", err)
				continue
			}
			_ = s.notificationSvc.QueueNotification(ctx, notification.CreateNotificationRequest{
				CompanyID:   companyID,
				RecipientID: record.UserID,
				Type:        notification.TypeClockOutReminder,
				Title:       "Don't Forget to Clock Out",
				Message:     "You are still clocked in. Remember to clock out before you leave.",
				Data:        map[string]interface{}{"attendance_id": record.ID},
			})
		}
	}

	return nil
}

func (s *SchedulerServiceImpl) notifyAutoEvent(ctx context.Context, companyID, userID string, typ notification.Type, title, message, attendanceID string) {
	if s.notificationSvc == nil {
		return
	}
	_ = s.notificationSvc.QueueNotification(ctx, notification.CreateNotificationRequest{
		CompanyID:   companyID,
		RecipientID: userID,
		Type:        typ,
		Title:       title,
		Message:     message,
		Data:        map[string]interface{}{"attendance_id": attendanceID},
	})
}

// within reports start <= t <= end.
func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func atTimeOfDay(day time.Time, tod time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, loc)
}
