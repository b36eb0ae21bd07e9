package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stafftrack/attendance-backend-go/internal/domain/attendance"
	"github.com/stafftrack/attendance-backend-go/internal/domain/company"
	"github.com/stafftrack/attendance-backend-go/internal/domain/employee"
	"github.com/stafftrack/attendance-backend-go/internal/domain/notification"
)

// ========================================
// fakes
// ========================================

type fakePolicyRepo struct {
	policy company.Policy
	err    error
}

func (f *fakePolicyRepo) GetPolicy(ctx context.Context, companyID string) (company.Policy, error) {
	if f.err != nil {
		return company.Policy{}, f.err
	}
	return f.policy, nil
}

func (f *fakePolicyRepo) ListAutoClockCompanies(ctx context.Context) ([]company.Policy, error) {
	return []company.Policy{f.policy}, nil
}

func (f *fakePolicyRepo) ListCompanyIDs(ctx context.Context) ([]string, error) {
	return []string{f.policy.CompanyID}, nil
}

type fakeEmployeeRepo struct {
	employee employee.Employee
	settings employee.AttendanceSettings
	admins   []employee.Employee
	empErr   error
}

func (f *fakeEmployeeRepo) GetActiveByUserID(ctx context.Context, userID, companyID string) (employee.Employee, error) {
	if f.empErr != nil {
		return employee.Employee{}, f.empErr
	}
	return f.employee, nil
}

func (f *fakeEmployeeRepo) GetSettings(ctx context.Context, employeeID, companyID string) (employee.AttendanceSettings, error) {
	return f.settings, nil
}

func (f *fakeEmployeeRepo) ListActiveByCompany(ctx context.Context, companyID string) ([]employee.Employee, error) {
	return []employee.Employee{f.employee}, nil
}

func (f *fakeEmployeeRepo) ListAdmins(ctx context.Context, companyID string) ([]employee.Employee, error) {
	return f.admins, nil
}

type fakeAttendanceRepo struct {
	records    map[string]attendance.Record
	openBreaks map[string]*attendance.Break
	hasRecord  bool
	openRecord *attendance.Record

	created   []attendance.Record
	finalized []attendance.Record
	breaksCut []int // durations passed to CloseBreak
	nextID    int
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{
		records:    map[string]attendance.Record{},
		openBreaks: map[string]*attendance.Break{},
	}
}

func (f *fakeAttendanceRepo) CreateRecord(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	f.nextID++
	record.ID = "att-" + string(rune('0'+f.nextID))
	record.CreatedAt = record.ClockInTime
	record.UpdatedAt = record.ClockInTime
	f.records[record.ID] = record
	f.created = append(f.created, record)
	return record, nil
}

func (f *fakeAttendanceRepo) GetByID(ctx context.Context, id, companyID string) (attendance.Record, error) {
	r, ok := f.records[id]
	if !ok || r.CompanyID != companyID {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeAttendanceRepo) GetOpenRecordForDay(ctx context.Context, userID, companyID, workDate string) (*attendance.Record, error) {
	return f.openRecord, nil
}

func (f *fakeAttendanceRepo) HasRecordForDay(ctx context.Context, userID, companyID, workDate string) (bool, error) {
	return f.hasRecord, nil
}

func (f *fakeAttendanceRepo) FinalizeCheckout(ctx context.Context, record attendance.Record) error {
	existing, ok := f.records[record.ID]
	if !ok {
		return attendance.ErrRecordNotFound
	}
	if existing.ClockOutTime != nil {
		return attendance.ErrAlreadyCheckedOut
	}
	f.records[record.ID] = record
	f.finalized = append(f.finalized, record)
	return nil
}

func (f *fakeAttendanceRepo) List(ctx context.Context, filter attendance.ListFilter, companyID string) ([]attendance.Record, int64, error) {
	var out []attendance.Record
	for _, r := range f.records {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAttendanceRepo) ListOpenForDate(ctx context.Context, companyID, workDate string) ([]attendance.Record, error) {
	return nil, nil
}

func (f *fakeAttendanceRepo) MarkReminderSent(ctx context.Context, id, companyID string) error {
	return nil
}

func (f *fakeAttendanceRepo) CreateBreak(ctx context.Context, recordID, companyID string, start time.Time) (attendance.Break, error) {
	b := attendance.Break{ID: "brk-1", AttendanceID: recordID, StartTime: start}
	f.openBreaks[recordID] = &b
	return b, nil
}

func (f *fakeAttendanceRepo) GetOpenBreak(ctx context.Context, recordID string) (*attendance.Break, error) {
	return f.openBreaks[recordID], nil
}

func (f *fakeAttendanceRepo) CloseBreak(ctx context.Context, breakID string, end time.Time, durationMinutes int, restoreStatus attendance.Status) (attendance.Break, error) {
	f.breaksCut = append(f.breaksCut, durationMinutes)
	for recordID, b := range f.openBreaks {
		if b.ID == breakID {
			closed := *b
			closed.EndTime = &end
			closed.DurationMinutes = &durationMinutes
			delete(f.openBreaks, recordID)
			return closed, nil
		}
	}
	return attendance.Break{}, attendance.ErrNoActiveBreak
}

func (f *fakeAttendanceRepo) ListBreaksByRecordIDs(ctx context.Context, recordIDs []string) (map[string][]attendance.Break, error) {
	return nil, nil
}

type fakeNotificationService struct {
	queued []notification.CreateNotificationRequest
}

func (f *fakeNotificationService) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	f.queued = append(f.queued, req)
	return nil
}

func (f *fakeNotificationService) List(ctx context.Context, recipientID, companyID string, limit, offset int) (notification.ListResponse, error) {
	return notification.ListResponse{}, nil
}

func (f *fakeNotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	return nil
}

func (f *fakeNotificationService) Stop() {}

type fakeVerifier struct {
	accept bool
	called bool
}

func (f *fakeVerifier) Verify(ctx context.Context, userID, proof string) bool {
	f.called = true
	return f.accept
}

// ========================================
// fixture
// ========================================

const (
	testCompanyID = "company-1"
	testUserID    = "user-1"
)

// Lagos office, Mon-Fri 09:00-17:00, 15 minute grace, 100m fence.
func testPolicy() company.Policy {
	lat, lon := 6.5244, 3.3792
	return company.Policy{
		CompanyID:                      testCompanyID,
		Timezone:                       "Africa/Lagos",
		WorkingDays:                    []int{1, 2, 3, 4, 5},
		WorkStartTime:                  time.Date(0, 1, 1, 9, 0, 0, 0, time.UTC),
		WorkEndTime:                    time.Date(0, 1, 1, 17, 0, 0, 0, time.UTC),
		GracePeriodMinutes:             15,
		EarlyDepartureThresholdMinutes: 30,
		OfficeLatitude:                 &lat,
		OfficeLongitude:                &lon,
		GeofenceRadiusMeters:           100,
		RequireGeofenceForClockIn:      true,
		NotifyLateArrival:              true,
		NotifyEarlyDeparture:           true,
		BreaksEnabled:                  true,
	}
}

type engineFixture struct {
	svc        *AttendanceServiceImpl
	policyRepo *fakePolicyRepo
	empRepo    *fakeEmployeeRepo
	attRepo    *fakeAttendanceRepo
	notifSvc   *fakeNotificationService
	verifier   *fakeVerifier
}

func newEngine(t *testing.T, policy company.Policy, now time.Time) *engineFixture {
	t.Helper()
	verifiedAt := now.Add(-24 * time.Hour)
	f := &engineFixture{
		policyRepo: &fakePolicyRepo{policy: policy},
		empRepo: &fakeEmployeeRepo{
			employee: employee.Employee{
				ID: "emp-1", CompanyID: testCompanyID, UserID: testUserID,
				FullName: "Ada Obi", Role: "employee", IsActive: true,
			},
			settings: employee.AttendanceSettings{
				LastLocationVerifiedAt: &verifiedAt,
			},
			admins: []employee.Employee{
				{ID: "emp-adm", CompanyID: testCompanyID, UserID: "admin-1", Role: "admin", IsActive: true},
			},
		},
		attRepo:  newFakeAttendanceRepo(),
		notifSvc: &fakeNotificationService{},
		verifier: &fakeVerifier{accept: true},
	}
	svc := NewAttendanceService(f.policyRepo, f.empRepo, f.attRepo, f.notifSvc, f.verifier)
	f.svc = svc.(*AttendanceServiceImpl)
	f.svc.clock = func() time.Time { return now }
	return f
}

// lagosTime builds a UTC instant whose Africa/Lagos wall clock reads the given
// values. Lagos is UTC+1 year-round.
func lagosTime(year int, month time.Month, day, hour, minute, sec int) time.Time {
	loc, _ := time.LoadLocation("Africa/Lagos")
	return time.Date(year, month, day, hour, minute, sec, 0, loc).UTC()
}

func checkInAt(lat, lon float64) attendance.CheckInRequest {
	return attendance.CheckInRequest{
		UserID:    testUserID,
		CompanyID: testCompanyID,
		Latitude:  &lat,
		Longitude: &lon,
		Method:    attendance.MethodManual,
	}
}

// ========================================
// check-in
// ========================================

func TestCheckIn_InsideGeofenceOnTime(t *testing.T) {
	// Monday 2025-06-02 09:05 Lagos, at the office.
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 9, 5, 0))

	resp, err := f.svc.CheckIn(context.Background(), checkInAt(6.5244, 3.3792))
	require.NoError(t, err)

	assert.Equal(t, string(attendance.StatusPresent), resp.Status)
	assert.True(t, resp.IsWithinGeofence)
	assert.False(t, resp.IsLateArrival)
	assert.Equal(t, 0, resp.MinutesLate)
	assert.Equal(t, "2025-06-02", resp.WorkDate)
	assert.Empty(t, f.notifSvc.queued)
}

func TestCheckIn_OutsideGeofenceRejected(t *testing.T) {
	// ~150m north of the office with no remote allowance.
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 9, 5, 0))

	_, err := f.svc.CheckIn(context.Background(), checkInAt(6.52575, 3.3792))
	require.Error(t, err)
	assert.ErrorIs(t, err, attendance.ErrOutsideGeofence)

	var gerr *attendance.GeofenceError
	require.ErrorAs(t, err, &gerr)
	assert.InDelta(t, 150, gerr.DistanceMeters, 5)
	assert.Equal(t, float64(100), gerr.RadiusMeters)

	// Nothing was written, one violation notification per admin.
	assert.Empty(t, f.attRepo.created)
	require.Len(t, f.notifSvc.queued, 1)
	assert.Equal(t, notification.TypeGeofenceViolation, f.notifSvc.queued[0].Type)
}

func TestCheckIn_RemoteWorkDayOutsideGeofence(t *testing.T) {
	// Same distance as the rejection case, but Monday is a remote work day.
	policy := testPolicy()
	policy.AllowRemoteClockIn = true
	f := newEngine(t, policy, lagosTime(2025, 6, 2, 9, 5, 0))
	f.empRepo.settings.RemoteWorkDays = []int{1}

	resp, err := f.svc.CheckIn(context.Background(), checkInAt(6.52575, 3.3792))
	require.NoError(t, err)

	assert.False(t, resp.IsWithinGeofence)
	require.NotNil(t, resp.ClockInDistanceMeters)
	assert.InDelta(t, 150, *resp.ClockInDistanceMeters, 5)
	assert.Empty(t, f.notifSvc.queued)
}

func TestCheckIn_LatenessBoundary(t *testing.T) {
	tests := []struct {
		name        string
		hour, min   int
		sec         int
		wantStatus  attendance.Status
		wantMinutes int
	}{
		{"well before start", 8, 30, 0, attendance.StatusPresent, 0},
		{"exactly at grace limit", 9, 15, 0, attendance.StatusPresent, 0},
		{"one second past grace", 9, 15, 1, attendance.StatusLate, 15},
		{"twenty minutes late", 9, 20, 0, attendance.StatusLate, 20},
		{"fractional minute floors", 9, 20, 59, attendance.StatusLate, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, tt.hour, tt.min, tt.sec))

			resp, err := f.svc.CheckIn(context.Background(), checkInAt(6.5244, 3.3792))
			require.NoError(t, err)
			assert.Equal(t, string(tt.wantStatus), resp.Status)
			assert.Equal(t, tt.wantMinutes, resp.MinutesLate)
		})
	}
}

func TestCheckIn_LateTriggersAdminNotification(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 9, 40, 0))

	resp, err := f.svc.CheckIn(context.Background(), checkInAt(6.5244, 3.3792))
	require.NoError(t, err)
	assert.True(t, resp.IsLateArrival)
	assert.Equal(t, 40, resp.MinutesLate)

	require.Len(t, f.notifSvc.queued, 1)
	assert.Equal(t, notification.TypeLateArrival, f.notifSvc.queued[0].Type)
	assert.Equal(t, "admin-1", f.notifSvc.queued[0].RecipientID)

	// Record carries the idempotency flag so the nightly sweep skips it.
	require.Len(t, f.attRepo.created, 1)
	assert.True(t, f.attRepo.created[0].AdminNotifiedLate)
}

func TestCheckIn_BiometricRequiredBeforeGeofence(t *testing.T) {
	policy := testPolicy()
	policy.BiometricsRequired = true
	// Outside the fence too; the biometric rejection must come first.
	f := newEngine(t, policy, lagosTime(2025, 6, 2, 9, 5, 0))

	_, err := f.svc.CheckIn(context.Background(), checkInAt(6.52575, 3.3792))
	assert.ErrorIs(t, err, attendance.ErrBiometricRequired)
	assert.NotErrorIs(t, err, attendance.ErrOutsideGeofence)
	assert.Empty(t, f.attRepo.created)
	assert.Empty(t, f.notifSvc.queued)
}

func TestCheckIn_BiometricProofRejected(t *testing.T) {
	policy := testPolicy()
	policy.BiometricsRequired = true
	f := newEngine(t, policy, lagosTime(2025, 6, 2, 9, 5, 0))
	f.verifier.accept = false

	proof := "forged"
	req := checkInAt(6.5244, 3.3792)
	req.BiometricProof = &proof

	_, err := f.svc.CheckIn(context.Background(), req)
	assert.ErrorIs(t, err, attendance.ErrBiometricRequired)
	assert.True(t, f.verifier.called)
}

func TestCheckIn_BiometricNotRequiredForAuto(t *testing.T) {
	policy := testPolicy()
	policy.BiometricsRequired = true
	policy.AutoClockInEnabled = true
	f := newEngine(t, policy, lagosTime(2025, 6, 2, 9, 5, 0))

	req := checkInAt(6.5244, 3.3792)
	req.Method = attendance.MethodAuto

	_, err := f.svc.CheckIn(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, f.verifier.called)
}

func TestCheckIn_AutoDisabled(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 9, 5, 0))

	req := checkInAt(6.5244, 3.3792)
	req.Method = attendance.MethodAuto

	_, err := f.svc.CheckIn(context.Background(), req)
	assert.ErrorIs(t, err, attendance.ErrAutoDisabled)
}

func TestCheckIn_AlreadyClockedInToday(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 9, 5, 0))
	f.attRepo.hasRecord = true

	_, err := f.svc.CheckIn(context.Background(), checkInAt(6.5244, 3.3792))
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedIn)
}

func TestCheckIn_MultipleClockInsAllowedButSessionOpen(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 13, 0, 0))
	f.empRepo.settings.AllowMultipleClockInsPerDay = true
	f.attRepo.hasRecord = true // a closed record exists
	f.attRepo.openRecord = &attendance.Record{ID: "att-open", UserID: testUserID}

	_, err := f.svc.CheckIn(context.Background(), checkInAt(6.5244, 3.3792))
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedIn)
}

func TestCheckIn_MultipleClockInsAllowedAfterCheckout(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 13, 0, 0))
	f.empRepo.settings.AllowMultipleClockInsPerDay = true
	f.attRepo.hasRecord = true // morning session, already closed
	f.attRepo.openRecord = nil

	_, err := f.svc.CheckIn(context.Background(), checkInAt(6.5244, 3.3792))
	assert.NoError(t, err)
}

func TestCheckIn_NonWorkingDay(t *testing.T) {
	// Saturday 2025-06-07.
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 7, 9, 5, 0))

	_, err := f.svc.CheckIn(context.Background(), checkInAt(6.5244, 3.3792))
	assert.ErrorIs(t, err, attendance.ErrNotAWorkingDay)
}

func TestCheckIn_NonWorkingDayRemotePath(t *testing.T) {
	policy := testPolicy()
	policy.AllowRemoteClockIn = true
	policy.AllowRemoteClockInOnNonWorkingDays = true

	t.Run("outside every fence succeeds", func(t *testing.T) {
		f := newEngine(t, policy, lagosTime(2025, 6, 7, 9, 5, 0))
		resp, err := f.svc.CheckIn(context.Background(), checkInAt(6.6, 3.5))
		require.NoError(t, err)
		assert.False(t, resp.IsWithinGeofence)
	})

	t.Run("inside the office still rejected", func(t *testing.T) {
		f := newEngine(t, policy, lagosTime(2025, 6, 7, 9, 5, 0))
		_, err := f.svc.CheckIn(context.Background(), checkInAt(6.5244, 3.3792))
		assert.ErrorIs(t, err, attendance.ErrNotAWorkingDay)
	})

	t.Run("without location rejected", func(t *testing.T) {
		f := newEngine(t, policy, lagosTime(2025, 6, 7, 9, 5, 0))
		_, err := f.svc.CheckIn(context.Background(), attendance.CheckInRequest{
			UserID: testUserID, CompanyID: testCompanyID, Method: attendance.MethodManual,
		})
		assert.ErrorIs(t, err, attendance.ErrNotAWorkingDay)
	})
}

func TestCheckIn_RemoteLapsesWhenLocationVerificationStale(t *testing.T) {
	stale := lagosTime(2025, 5, 20, 12, 0, 0)

	t.Run("remote work day falls back to the geofence", func(t *testing.T) {
		policy := testPolicy()
		policy.AllowRemoteClockIn = true
		f := newEngine(t, policy, lagosTime(2025, 6, 2, 9, 5, 0))
		f.empRepo.settings.RemoteWorkDays = []int{1}
		f.empRepo.settings.LastLocationVerifiedAt = &stale

		_, err := f.svc.CheckIn(context.Background(), checkInAt(6.52575, 3.3792))
		assert.ErrorIs(t, err, attendance.ErrOutsideGeofence)
	})

	t.Run("non-working day remote path closes", func(t *testing.T) {
		policy := testPolicy()
		policy.AllowRemoteClockIn = true
		policy.AllowRemoteClockInOnNonWorkingDays = true
		f := newEngine(t, policy, lagosTime(2025, 6, 7, 9, 5, 0))
		f.empRepo.settings.LastLocationVerifiedAt = &stale

		_, err := f.svc.CheckIn(context.Background(), checkInAt(6.6, 3.5))
		assert.ErrorIs(t, err, attendance.ErrNotAWorkingDay)
	})

	t.Run("never verified counts as stale", func(t *testing.T) {
		policy := testPolicy()
		policy.AllowRemoteClockIn = true
		f := newEngine(t, policy, lagosTime(2025, 6, 2, 9, 5, 0))
		f.empRepo.settings.RemoteWorkDays = []int{1}
		f.empRepo.settings.LastLocationVerifiedAt = nil

		_, err := f.svc.CheckIn(context.Background(), checkInAt(6.52575, 3.3792))
		assert.ErrorIs(t, err, attendance.ErrOutsideGeofence)
	})
}

func TestCheckIn_MultiLocationWidensFences(t *testing.T) {
	policy := testPolicy()
	policy.Locations = []company.Location{
		{ID: "loc-2", Name: "Annex", Latitude: 6.6000, Longitude: 3.5000, RadiusMeters: 80, IsActive: true},
	}

	t.Run("annex accepted when multi-location enabled", func(t *testing.T) {
		f := newEngine(t, policy, lagosTime(2025, 6, 2, 9, 5, 0))
		f.empRepo.settings.AllowMultiLocationClockIn = true
		resp, err := f.svc.CheckIn(context.Background(), checkInAt(6.6000, 3.5000))
		require.NoError(t, err)
		assert.True(t, resp.IsWithinGeofence)
	})

	t.Run("annex rejected when multi-location disabled", func(t *testing.T) {
		f := newEngine(t, policy, lagosTime(2025, 6, 2, 9, 5, 0))
		_, err := f.svc.CheckIn(context.Background(), checkInAt(6.6000, 3.5000))
		assert.ErrorIs(t, err, attendance.ErrOutsideGeofence)
	})
}

func TestCheckIn_GeofenceNotConfigured(t *testing.T) {
	policy := testPolicy()
	policy.OfficeLatitude = nil
	policy.OfficeLongitude = nil
	f := newEngine(t, policy, lagosTime(2025, 6, 2, 9, 5, 0))

	_, err := f.svc.CheckIn(context.Background(), checkInAt(6.5244, 3.3792))
	assert.ErrorIs(t, err, company.ErrGeofenceNotConfigured)
}

func TestCheckIn_InactiveUser(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 9, 5, 0))
	f.empRepo.empErr = employee.ErrInvalidUser

	_, err := f.svc.CheckIn(context.Background(), checkInAt(6.5244, 3.3792))
	assert.ErrorIs(t, err, employee.ErrInvalidUser)
}

func TestCheckIn_ValidationRejectsLoneLatitude(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 9, 5, 0))

	lat := 6.5244
	_, err := f.svc.CheckIn(context.Background(), attendance.CheckInRequest{
		UserID: testUserID, CompanyID: testCompanyID,
		Latitude: &lat, Method: attendance.MethodManual,
	})
	assert.Error(t, err)
	assert.Empty(t, f.attRepo.created)
}

// ========================================
// check-out
// ========================================

func openRecord(f *engineFixture, clockIn time.Time, late bool) attendance.Record {
	status := attendance.StatusPresent
	if late {
		status = attendance.StatusLate
	}
	r := attendance.Record{
		ID: "att-1", CompanyID: testCompanyID, UserID: testUserID,
		WorkDate: clockIn, ClockInTime: clockIn,
		Status: status, IsLateArrival: late,
		CheckInMethod: attendance.MethodManual,
	}
	f.attRepo.records[r.ID] = r
	return r
}

func checkOutReq(id string) attendance.CheckOutRequest {
	return attendance.CheckOutRequest{
		UserID: testUserID, CompanyID: testCompanyID,
		AttendanceID: id, Method: attendance.MethodManual,
	}
}

func TestCheckOut_EarlyDeparture(t *testing.T) {
	// Checkout at 16:25 against a 17:00 end and 30 minute threshold.
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 16, 25, 0))
	r := openRecord(f, lagosTime(2025, 6, 2, 9, 0, 0), false)

	reason := "doctor appointment"
	req := checkOutReq(r.ID)
	req.DepartureReason = &reason

	resp, err := f.svc.CheckOut(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, resp.IsEarlyDeparture)
	assert.Equal(t, 35, resp.MinutesEarly)
	assert.Equal(t, string(attendance.StatusEarlyDeparture), resp.Status)
	require.NotNil(t, resp.DepartureReason)
	assert.Equal(t, reason, *resp.DepartureReason)

	require.Len(t, f.notifSvc.queued, 1)
	assert.Equal(t, notification.TypeEarlyDeparture, f.notifSvc.queued[0].Type)

	// A second checkout on the same record fails.
	_, err = f.svc.CheckOut(context.Background(), checkOutReq(r.ID))
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)
	assert.Len(t, f.notifSvc.queued, 1)
}

func TestCheckOut_OnTimeKeepsStatus(t *testing.T) {
	tests := []struct {
		name       string
		late       bool
		wantStatus attendance.Status
	}{
		{"present stays present", false, attendance.StatusPresent},
		{"late stays late", true, attendance.StatusLate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 17, 10, 0))
			r := openRecord(f, lagosTime(2025, 6, 2, 9, 0, 0), tt.late)

			resp, err := f.svc.CheckOut(context.Background(), checkOutReq(r.ID))
			require.NoError(t, err)
			assert.False(t, resp.IsEarlyDeparture)
			assert.Equal(t, 0, resp.MinutesEarly)
			assert.Equal(t, string(tt.wantStatus), resp.Status)
			assert.Empty(t, f.notifSvc.queued)
		})
	}
}

func TestCheckOut_WithinThresholdNotEarly(t *testing.T) {
	// 16:35 is inside the 30 minute threshold before 17:00.
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 16, 35, 0))
	r := openRecord(f, lagosTime(2025, 6, 2, 9, 0, 0), false)

	resp, err := f.svc.CheckOut(context.Background(), checkOutReq(r.ID))
	require.NoError(t, err)
	assert.False(t, resp.IsEarlyDeparture)
}

func TestCheckOut_ReasonDroppedWhenNotEarly(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 17, 10, 0))
	r := openRecord(f, lagosTime(2025, 6, 2, 9, 0, 0), false)

	reason := "leaving"
	req := checkOutReq(r.ID)
	req.DepartureReason = &reason

	resp, err := f.svc.CheckOut(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, resp.DepartureReason)
}

func TestCheckOut_ForceClosesOpenBreak(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 17, 10, 0))
	r := openRecord(f, lagosTime(2025, 6, 2, 9, 0, 0), false)
	// Break opened 47.5 minutes before checkout; duration floors to 47.
	f.attRepo.openBreaks[r.ID] = &attendance.Break{
		ID: "brk-1", AttendanceID: r.ID,
		StartTime: lagosTime(2025, 6, 2, 16, 22, 30),
	}

	_, err := f.svc.CheckOut(context.Background(), checkOutReq(r.ID))
	require.NoError(t, err)

	require.Len(t, f.attRepo.breaksCut, 1)
	assert.Equal(t, 47, f.attRepo.breaksCut[0])
	assert.Empty(t, f.attRepo.openBreaks)
}

func TestCheckOut_WrongUserLooksLikeNotFound(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 17, 10, 0))
	r := openRecord(f, lagosTime(2025, 6, 2, 9, 0, 0), false)

	req := checkOutReq(r.ID)
	req.UserID = "someone-else"

	_, err := f.svc.CheckOut(context.Background(), req)
	assert.ErrorIs(t, err, attendance.ErrRecordNotFound)
}

func TestCheckOut_UnknownRecord(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 17, 10, 0))

	_, err := f.svc.CheckOut(context.Background(), checkOutReq("att-missing"))
	assert.ErrorIs(t, err, attendance.ErrRecordNotFound)
}

func TestCheckOut_BiometricGateApplies(t *testing.T) {
	policy := testPolicy()
	policy.BiometricsRequired = true
	f := newEngine(t, policy, lagosTime(2025, 6, 2, 17, 10, 0))
	r := openRecord(f, lagosTime(2025, 6, 2, 9, 0, 0), false)

	_, err := f.svc.CheckOut(context.Background(), checkOutReq(r.ID))
	assert.ErrorIs(t, err, attendance.ErrBiometricRequired)
	assert.Empty(t, f.attRepo.finalized)
}

// ========================================
// breaks
// ========================================

func breakReq() attendance.BreakRequest {
	return attendance.BreakRequest{UserID: testUserID, CompanyID: testCompanyID}
}

func TestBreak_Lifecycle(t *testing.T) {
	start := lagosTime(2025, 6, 2, 12, 0, 0)
	f := newEngine(t, testPolicy(), start)
	r := openRecord(f, lagosTime(2025, 6, 2, 9, 0, 0), false)
	f.attRepo.openRecord = &r

	_, err := f.svc.StartBreak(context.Background(), breakReq())
	require.NoError(t, err)

	// A second start while one is open fails.
	_, err = f.svc.StartBreak(context.Background(), breakReq())
	assert.ErrorIs(t, err, attendance.ErrBreakAlreadyActive)

	// End 32 minutes later.
	f.svc.clock = func() time.Time { return start.Add(32 * time.Minute) }
	resp, err := f.svc.EndBreak(context.Background(), breakReq())
	require.NoError(t, err)
	require.NotNil(t, resp.DurationMinutes)
	assert.Equal(t, 32, *resp.DurationMinutes)

	// Ending again fails.
	_, err = f.svc.EndBreak(context.Background(), breakReq())
	assert.ErrorIs(t, err, attendance.ErrNoActiveBreak)
}

func TestBreak_RequiresOpenSession(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 12, 0, 0))

	_, err := f.svc.StartBreak(context.Background(), breakReq())
	assert.ErrorIs(t, err, attendance.ErrNotClockedIn)
}

func TestBreak_DisabledByPolicy(t *testing.T) {
	policy := testPolicy()
	policy.BreaksEnabled = false
	f := newEngine(t, policy, lagosTime(2025, 6, 2, 12, 0, 0))

	_, err := f.svc.StartBreak(context.Background(), breakReq())
	assert.ErrorIs(t, err, attendance.ErrBreaksNotEnabled)
}

func TestNotifyAdmins_SkipsSender(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 9, 40, 0))
	// The late employee is themselves an admin.
	f.empRepo.admins = append(f.empRepo.admins, f.empRepo.employee)

	_, err := f.svc.CheckIn(context.Background(), checkInAt(6.5244, 3.3792))
	require.NoError(t, err)

	require.Len(t, f.notifSvc.queued, 1)
	assert.NotEqual(t, testUserID, f.notifSvc.queued[0].RecipientID)
}

func TestCheckIn_PolicyLoadFailurePropagates(t *testing.T) {
	f := newEngine(t, testPolicy(), lagosTime(2025, 6, 2, 9, 5, 0))
	f.policyRepo.err = errors.New("connection refused")

	_, err := f.svc.CheckIn(context.Background(), checkInAt(6.5244, 3.3792))
	assert.Error(t, err)
}
