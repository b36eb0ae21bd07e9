package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/stafftrack/attendance-backend-go/internal/domain/attendance"
	"github.com/stafftrack/attendance-backend-go/internal/domain/company"
	"github.com/stafftrack/attendance-backend-go/internal/domain/employee"
	"github.com/stafftrack/attendance-backend-go/internal/domain/notification"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/geo"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/workcal"
)

// fenceCandidate is one location an employee may clock in against.
type fenceCandidate struct {
	name         string
	center       geo.Coordinates
	radiusMeters float64
}

type AttendanceServiceImpl struct {
	policyRepo      company.PolicyRepository
	employeeRepo    employee.Repository
	attendanceRepo  attendance.Repository
	notificationSvc notification.Service
	verifier        attendance.BiometricVerifier

	// clock is swappable in tests; everything time-sensitive goes through it.
	clock func() time.Time
}

func NewAttendanceService(
	policyRepo company.PolicyRepository,
	employeeRepo employee.Repository,
	attendanceRepo attendance.Repository,
	notificationSvc notification.Service,
	verifier attendance.BiometricVerifier,
) attendance.Service {
	return &AttendanceServiceImpl{
		policyRepo:      policyRepo,
		employeeRepo:    employeeRepo,
		attendanceRepo:  attendanceRepo,
		notificationSvc: notificationSvc,
		verifier:        verifier,
		clock:           time.Now,
	}
}

// CheckIn implements attendance.Service. Preconditions run in a fixed order;
// the first failure wins and nothing is written on any rejection path.
func (a *AttendanceServiceImpl) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.RecordResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.RecordResponse{}, err
	}

	policy, err := a.policyRepo.GetPolicy(ctx, req.CompanyID)
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	// 1. The caller must be an active employee of this company.
	emp, err := a.employeeRepo.GetActiveByUserID(ctx, req.UserID, req.CompanyID)
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	settings, err := a.employeeRepo.GetSettings(ctx, emp.ID, req.CompanyID)
	if err != nil {
		return attendance.RecordResponse{}, fmt.Errorf("failed to get attendance settings: %w", err)
	}

	// 2. Biometric gate for manual clock-ins, before anything else touches
	// geofences or storage.
	if err := a.checkBiometrics(ctx, policy, req.UserID, req.Method, req.BiometricProof); err != nil {
		return attendance.RecordResponse{}, err
	}

	// 3. Auto clock-ins only when the company opted in.
	if req.Method == attendance.MethodAuto && !policy.AutoClockInEnabled {
		return attendance.RecordResponse{}, attendance.ErrAutoDisabled
	}

	loc := workcal.LoadLocation(policy.Timezone)
	nowUTC := a.clock().UTC()
	nowLocal := nowUTC.In(loc)
	workDate := nowLocal.Format("2006-01-02")

	// 4. One session per local day unless multiple clock-ins are permitted;
	// never two open sessions either way.
	if settings.AllowMultipleClockInsPerDay {
		open, err := a.attendanceRepo.GetOpenRecordForDay(ctx, req.UserID, req.CompanyID, workDate)
		if err != nil {
			return attendance.RecordResponse{}, fmt.Errorf("failed to check open record: %w", err)
		}
		if open != nil {
			return attendance.RecordResponse{}, attendance.ErrAlreadyClockedIn
		}
	} else {
		has, err := a.attendanceRepo.HasRecordForDay(ctx, req.UserID, req.CompanyID, workDate)
		if err != nil {
			return attendance.RecordResponse{}, fmt.Errorf("failed to check existing record: %w", err)
		}
		if has {
			return attendance.RecordResponse{}, attendance.ErrAlreadyClockedIn
		}
	}

	location := req.Location()
	isoToday := workcal.ISOWeekday(nowLocal)

	// Remote clock-in leans on the employee's device location being
	// trustworthy, so it lapses when the periodic verification goes stale.
	locationFresh := settings.LocationVerificationFresh(nowLocal)
	remoteToday := settings.RemoteAllowedOn(policy.AllowRemoteClockIn, isoToday) && locationFresh

	// 5. Non-working days admit only remote clock-ins, and only when the
	// company allows them on non-working days. Remote means outside every
	// fence, which the geofence step verifies.
	workingDay := workcal.IsWorkingDay(nowLocal, policy.WorkingDays, loc)
	mustBeRemote := false
	if !workingDay {
		if !settings.RemoteAllowed(policy.AllowRemoteClockIn) ||
			!policy.AllowRemoteClockInOnNonWorkingDays ||
			!locationFresh ||
			location == nil {
			return attendance.RecordResponse{}, attendance.ErrNotAWorkingDay
		}
		mustBeRemote = true
	}

	// 6. Geofence evaluation.
	var distance *float64
	within := false
	if location != nil {
		candidates := a.fenceCandidates(policy, settings)

		if policy.RequireGeofenceForClockIn && len(candidates) == 0 {
			return attendance.RecordResponse{}, company.ErrGeofenceNotConfigured
		}

		if len(candidates) > 0 {
			minDist := math.Inf(1)
			for _, c := range candidates {
				d := geo.Distance(*location, c.center)
				if d < minDist {
					minDist = d
				}
				if d <= c.radiusMeters {
					within = true
					distance = &d
					break
				}
			}
			if !within {
				distance = &minDist
			}
		}

		if mustBeRemote && within {
			// Inside the office on a non-working day is not a remote
			// clock-in.
			return attendance.RecordResponse{}, attendance.ErrNotAWorkingDay
		}

		if policy.RequireGeofenceForClockIn && !within && !remoteToday && !mustBeRemote {
			gerr := &attendance.GeofenceError{
				DistanceMeters: *distance,
				RadiusMeters:   policy.GeofenceRadiusMeters,
			}
			a.notifyGeofenceViolation(ctx, policy, emp, *distance)
			return attendance.RecordResponse{}, gerr
		}
	} else if policy.RequireGeofenceForClockIn && req.Method == attendance.MethodManual && !remoteToday {
		return attendance.RecordResponse{}, fmt.Errorf("%w: no location supplied", attendance.ErrOutsideGeofence)
	}

	// 7. Lateness. Arriving at exactly workStart+grace is still present;
	// minutes late measure from workStart, floored.
	workStart := atTimeOfDay(nowLocal, policy.WorkStartTime, loc)
	graceLimit := workStart.Add(time.Duration(policy.GracePeriodMinutes) * time.Minute)

	status := attendance.StatusPresent
	isLate := false
	minutesLate := 0
	if nowLocal.After(graceLimit) {
		isLate = true
		status = attendance.StatusLate
		if diff := nowLocal.Sub(workStart).Minutes(); diff > 0 {
			minutesLate = int(math.Floor(diff))
		}
	}

	record := attendance.Record{
		CompanyID:             req.CompanyID,
		UserID:                req.UserID,
		WorkDate:              dateOnly(nowLocal, loc),
		ClockInTime:           nowUTC,
		ClockInDistanceMeters: distance,
		IsWithinGeofence:      within,
		Status:                status,
		IsLateArrival:         isLate,
		MinutesLate:           minutesLate,
		CheckInMethod:         req.Method,
		AdminNotifiedLate:     isLate && policy.NotifyLateArrival,
	}
	if location != nil {
		record.ClockInLatitude = &location.Latitude
		record.ClockInLongitude = &location.Longitude
	}

	// 8. Persist. The partial unique index on open records closes the
	// concurrent double clock-in race.
	created, err := a.attendanceRepo.CreateRecord(ctx, record)
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	if isLate && policy.NotifyLateArrival {
		a.notifyLateArrival(ctx, policy, emp, created.ID, minutesLate)
	}

	return mapRecordToResponse(created), nil
}

// CheckOut implements attendance.Service.
func (a *AttendanceServiceImpl) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.RecordResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.RecordResponse{}, err
	}

	policy, err := a.policyRepo.GetPolicy(ctx, req.CompanyID)
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	emp, err := a.employeeRepo.GetActiveByUserID(ctx, req.UserID, req.CompanyID)
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	// 1. The record must exist, belong to the caller, and still be open.
	record, err := a.attendanceRepo.GetByID(ctx, req.AttendanceID, req.CompanyID)
	if err != nil {
		return attendance.RecordResponse{}, err
	}
	if record.UserID != req.UserID {
		return attendance.RecordResponse{}, attendance.ErrRecordNotFound
	}
	if !record.Open() {
		return attendance.RecordResponse{}, attendance.ErrAlreadyCheckedOut
	}

	// 2. Biometric gate mirrors check-in.
	if err := a.checkBiometrics(ctx, policy, req.UserID, req.Method, req.BiometricProof); err != nil {
		return attendance.RecordResponse{}, err
	}

	loc := workcal.LoadLocation(policy.Timezone)
	nowUTC := a.clock().UTC()
	nowLocal := nowUTC.In(loc)

	// 3. Distance for the audit trail; it never gates checkout.
	if location := req.Location(); location != nil {
		record.ClockOutLatitude = &location.Latitude
		record.ClockOutLongitude = &location.Longitude
		if center, ok := policy.OfficeCoordinates(); ok {
			d := geo.Distance(*location, center)
			record.ClockOutDistanceMeters = &d
		}
	}

	// 4. Force-close any open break before finalizing.
	openBreak, err := a.attendanceRepo.GetOpenBreak(ctx, record.ID)
	if err != nil {
		return attendance.RecordResponse{}, fmt.Errorf("failed to get open break: %w", err)
	}
	if openBreak != nil {
		duration := truncatedMinutes(nowUTC.Sub(openBreak.StartTime))
		if _, err := a.attendanceRepo.CloseBreak(ctx, openBreak.ID, nowUTC, duration, baseStatus(record)); err != nil {
			return attendance.RecordResponse{}, fmt.Errorf("failed to force-close break: %w", err)
		}
	}

	// 5. Early departure.
	workEnd := atTimeOfDay(nowLocal, policy.WorkEndTime, loc)
	earlyLimit := workEnd.Add(-time.Duration(policy.EarlyDepartureThresholdMinutes) * time.Minute)

	isEarly := nowLocal.Before(earlyLimit)
	minutesEarly := 0
	if isEarly {
		minutesEarly = truncatedMinutes(workEnd.Sub(nowLocal))
	}

	status := baseStatus(record)
	if isEarly {
		status = attendance.StatusEarlyDeparture
	}

	// The departure reason is only meaningful for early departures; an
	// early departure without one is tolerated and logged.
	var reason *string
	if isEarly {
		reason = req.DepartureReason
		if reason == nil || *reason == "" {
			slog.Info("Unexplained early departure",
				"attendance_id", record.ID,
				"user_id", record.UserID,
				"minutes_early", minutesEarly)
			reason = nil
		}
	}

	// 6. Finalize. The conditional update keeps a repeated checkout from
	// producing two writes.
	record.ClockOutTime = &nowUTC
	record.Status = status
	record.IsEarlyDeparture = isEarly
	record.MinutesEarly = minutesEarly
	record.DepartureReason = reason
	record.CheckOutMethod = &req.Method
	record.EarlyDepartureNotified = isEarly && policy.NotifyEarlyDeparture

	if err := a.attendanceRepo.FinalizeCheckout(ctx, record); err != nil {
		return attendance.RecordResponse{}, err
	}

	if isEarly && policy.NotifyEarlyDeparture {
		a.notifyEarlyDeparture(ctx, policy, emp, record.ID, minutesEarly, reason)
	}

	return mapRecordToResponse(record), nil
}

// StartBreak implements attendance.Service.
func (a *AttendanceServiceImpl) StartBreak(ctx context.Context, req attendance.BreakRequest) (attendance.BreakResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.BreakResponse{}, err
	}

	policy, err := a.policyRepo.GetPolicy(ctx, req.CompanyID)
	if err != nil {
		return attendance.BreakResponse{}, err
	}
	if !policy.BreaksEnabled {
		return attendance.BreakResponse{}, attendance.ErrBreaksNotEnabled
	}

	if _, err := a.employeeRepo.GetActiveByUserID(ctx, req.UserID, req.CompanyID); err != nil {
		return attendance.BreakResponse{}, err
	}

	record, err := a.openRecordToday(ctx, req.UserID, req.CompanyID, policy)
	if err != nil {
		return attendance.BreakResponse{}, err
	}

	openBreak, err := a.attendanceRepo.GetOpenBreak(ctx, record.ID)
	if err != nil {
		return attendance.BreakResponse{}, fmt.Errorf("failed to get open break: %w", err)
	}
	if openBreak != nil {
		return attendance.BreakResponse{}, attendance.ErrBreakAlreadyActive
	}

	brk, err := a.attendanceRepo.CreateBreak(ctx, record.ID, req.CompanyID, a.clock().UTC())
	if err != nil {
		return attendance.BreakResponse{}, fmt.Errorf("failed to start break: %w", err)
	}

	return mapBreakToResponse(brk), nil
}

// EndBreak implements attendance.Service.
func (a *AttendanceServiceImpl) EndBreak(ctx context.Context, req attendance.BreakRequest) (attendance.BreakResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.BreakResponse{}, err
	}

	policy, err := a.policyRepo.GetPolicy(ctx, req.CompanyID)
	if err != nil {
		return attendance.BreakResponse{}, err
	}

	if _, err := a.employeeRepo.GetActiveByUserID(ctx, req.UserID, req.CompanyID); err != nil {
		return attendance.BreakResponse{}, err
	}

	record, err := a.openRecordToday(ctx, req.UserID, req.CompanyID, policy)
	if err != nil {
		return attendance.BreakResponse{}, attendance.ErrNoActiveBreak
	}

	openBreak, err := a.attendanceRepo.GetOpenBreak(ctx, record.ID)
	if err != nil {
		return attendance.BreakResponse{}, fmt.Errorf("failed to get open break: %w", err)
	}
	if openBreak == nil {
		return attendance.BreakResponse{}, attendance.ErrNoActiveBreak
	}

	now := a.clock().UTC()
	duration := truncatedMinutes(now.Sub(openBreak.StartTime))

	closed, err := a.attendanceRepo.CloseBreak(ctx, openBreak.ID, now, duration, baseStatus(*record))
	if err != nil {
		return attendance.BreakResponse{}, fmt.Errorf("failed to end break: %w", err)
	}

	return mapBreakToResponse(closed), nil
}

// ListAttendance implements attendance.Service.
func (a *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.ListFilter, companyID string) (attendance.ListResponse, error) {
	records, total, err := a.attendanceRepo.List(ctx, filter, companyID)
	if err != nil {
		return attendance.ListResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}
	return buildListResponse(records, total, filter), nil
}

// GetMyAttendance implements attendance.Service.
func (a *AttendanceServiceImpl) GetMyAttendance(ctx context.Context, userID, companyID string, filter attendance.ListFilter) (attendance.ListResponse, error) {
	filter.UserID = &userID
	records, total, err := a.attendanceRepo.List(ctx, filter, companyID)
	if err != nil {
		return attendance.ListResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}
	return buildListResponse(records, total, filter), nil
}

// ========================================
// internals
// ========================================

func (a *AttendanceServiceImpl) checkBiometrics(ctx context.Context, policy company.Policy, userID string, method attendance.CheckMethod, proof *string) error {
	if !policy.BiometricsRequired || method != attendance.MethodManual {
		return nil
	}
	if proof == nil || *proof == "" {
		return attendance.ErrBiometricRequired
	}
	if a.verifier != nil && !a.verifier.Verify(ctx, userID, *proof) {
		return fmt.Errorf("%w: proof rejected", attendance.ErrBiometricRequired)
	}
	return nil
}

// fenceCandidates builds the set of offices the employee may clock in
// against: the primary office plus, for multi-location employees, every
// active named location.
func (a *AttendanceServiceImpl) fenceCandidates(policy company.Policy, settings employee.AttendanceSettings) []fenceCandidate {
	var candidates []fenceCandidate

	if center, ok := policy.OfficeCoordinates(); ok {
		candidates = append(candidates, fenceCandidate{
			name:         "primary office",
			center:       center,
			radiusMeters: policy.GeofenceRadiusMeters,
		})
	}

	if settings.AllowMultiLocationClockIn {
		for _, l := range policy.Locations {
			if !l.IsActive || !l.Coordinates().Valid() {
				continue
			}
			candidates = append(candidates, fenceCandidate{
				name:         l.Name,
				center:       l.Coordinates(),
				radiusMeters: l.RadiusMeters,
			})
		}
	}

	return candidates
}

func (a *AttendanceServiceImpl) openRecordToday(ctx context.Context, userID, companyID string, policy company.Policy) (*attendance.Record, error) {
	loc := workcal.LoadLocation(policy.Timezone)
	workDate := a.clock().UTC().In(loc).Format("2006-01-02")

	record, err := a.attendanceRepo.GetOpenRecordForDay(ctx, userID, companyID, workDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get open record: %w", err)
	}
	if record == nil {
		return nil, attendance.ErrNotClockedIn
	}
	return record, nil
}

func (a *AttendanceServiceImpl) notifyLateArrival(ctx context.Context, policy company.Policy, emp employee.Employee, attendanceID string, minutesLate int) {
	a.notifyAdmins(ctx, policy.CompanyID, emp, notification.TypeLateArrival,
		"Late Arrival",
		fmt.Sprintf("%s clocked in %d minutes late", emp.FullName, minutesLate),
		map[string]interface{}{
			"attendance_id": attendanceID,
			"minutes_late":  minutesLate,
		})
}

func (a *AttendanceServiceImpl) notifyEarlyDeparture(ctx context.Context, policy company.Policy, emp employee.Employee, attendanceID string, minutesEarly int, reason *string) {
	data := map[string]interface{}{
		"attendance_id": attendanceID,
		"minutes_early": minutesEarly,
	}
	if reason != nil {
		data["departure_reason"] = *reason
	}
	a.notifyAdmins(ctx, policy.CompanyID, emp, notification.TypeEarlyDeparture,
		"Early Departure",
		fmt.Sprintf("%s clocked out %d minutes early", emp.FullName, minutesEarly),
		data)
}

func (a *AttendanceServiceImpl) notifyGeofenceViolation(ctx context.Context, policy company.Policy, emp employee.Employee, distanceMeters float64) {
	a.notifyAdmins(ctx, policy.CompanyID, emp, notification.TypeGeofenceViolation,
		"Geofence Violation",
		fmt.Sprintf("%s attempted to clock in %.0fm outside the office geofence", emp.FullName, math.Round(distanceMeters)),
		map[string]interface{}{
			"distance_meters": math.Round(distanceMeters),
		})
}

// notifyAdmins queues one notification per company admin. Failures are
// logged and swallowed; notifications never affect the attendance outcome.
func (a *AttendanceServiceImpl) notifyAdmins(ctx context.Context, companyID string, sender employee.Employee, typ notification.Type, title, message string, data map[string]interface{}) {
	if a.notificationSvc == nil {
		return
	}
	admins, err := a.employeeRepo.ListAdmins(ctx, companyID)
	if err != nil {
		slog.Error("Failed to list admins for notification", "company_id", companyID, "error", err)
		return
	}
	senderID := sender.UserID
	for _, admin := range admins {
		if admin.UserID == sender.UserID {
			continue
		}
		_ = a.notificationSvc.QueueNotification(ctx, notification.CreateNotificationRequest{
			CompanyID:   companyID,
			RecipientID: admin.UserID,
			SenderID:    &senderID,
			Type:        typ,
			Title:       title,
			Message:     message,
			Data:        data,
		})
	}
}

// baseStatus is what a record's status returns to when a break ends: late
// stays late, everything else is present.
func baseStatus(record attendance.Record) attendance.Status {
	if record.IsLateArrival {
		return attendance.StatusLate
	}
	return attendance.StatusPresent
}

func atTimeOfDay(day time.Time, tod time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, loc)
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// truncatedMinutes converts a duration to whole minutes, truncating the
// fraction. Break durations and early-departure minutes share this rule.
func truncatedMinutes(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(math.Floor(d.Minutes()))
}

// timePtrToString safely converts a *time.Time to a string.
func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.Format("2006-01-02 15:04:05")
	return &format
}

func mapBreakToResponse(b attendance.Break) attendance.BreakResponse {
	return attendance.BreakResponse{
		ID:              b.ID,
		StartTime:       b.StartTime.Format("2006-01-02 15:04:05"),
		EndTime:         timePtrToString(b.EndTime),
		DurationMinutes: b.DurationMinutes,
	}
}

func mapRecordToResponse(r attendance.Record) attendance.RecordResponse {
	breaks := make([]attendance.BreakResponse, 0, len(r.Breaks))
	totalBreak := 0
	for _, b := range r.Breaks {
		breaks = append(breaks, mapBreakToResponse(b))
		if b.DurationMinutes != nil {
			totalBreak += *b.DurationMinutes
		}
	}

	var checkOutMethod *string
	if r.CheckOutMethod != nil {
		m := string(*r.CheckOutMethod)
		checkOutMethod = &m
	}

	return attendance.RecordResponse{
		ID:                     r.ID,
		UserID:                 r.UserID,
		EmployeeName:           r.EmployeeName,
		WorkDate:               r.WorkDate.Format("2006-01-02"),
		ClockInTime:            r.ClockInTime.Format("2006-01-02 15:04:05"),
		ClockOutTime:           timePtrToString(r.ClockOutTime),
		ClockInLatitude:        r.ClockInLatitude,
		ClockInLongitude:       r.ClockInLongitude,
		ClockOutLatitude:       r.ClockOutLatitude,
		ClockOutLongitude:      r.ClockOutLongitude,
		ClockInDistanceMeters:  r.ClockInDistanceMeters,
		ClockOutDistanceMeters: r.ClockOutDistanceMeters,
		IsWithinGeofence:       r.IsWithinGeofence,
		Status:                 string(r.Status),
		IsLateArrival:          r.IsLateArrival,
		MinutesLate:            r.MinutesLate,
		IsEarlyDeparture:       r.IsEarlyDeparture,
		MinutesEarly:           r.MinutesEarly,
		DepartureReason:        r.DepartureReason,
		CheckInMethod:          string(r.CheckInMethod),
		CheckOutMethod:         checkOutMethod,
		Breaks:                 breaks,
		TotalBreakMinutes:      totalBreak,
		CreatedAt:              r.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:              r.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func buildListResponse(records []attendance.Record, total int64, filter attendance.ListFilter) attendance.ListResponse {
	responses := make([]attendance.RecordResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, mapRecordToResponse(r))
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page == 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return attendance.ListResponse{
		TotalCount: total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		Records:    responses,
	}
}
