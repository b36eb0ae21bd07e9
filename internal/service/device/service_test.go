package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stafftrack/attendance-backend-go/internal/domain/autoclock"
	"github.com/stafftrack/attendance-backend-go/internal/domain/company"
	"github.com/stafftrack/attendance-backend-go/internal/domain/device"
	"github.com/stafftrack/attendance-backend-go/internal/domain/employee"
)

type fakeDeviceRepo struct {
	devices map[string]device.Device
	touched []string
	nextID  int
}

func (f *fakeDeviceRepo) Create(ctx context.Context, d device.Device) (device.Device, error) {
	f.nextID++
	d.ID = "dev-1"
	d.CreatedAt = time.Now()
	f.devices[d.ID] = d
	return d, nil
}

func (f *fakeDeviceRepo) GetByID(ctx context.Context, id string) (device.Device, error) {
	d, ok := f.devices[id]
	if !ok {
		return device.Device{}, device.ErrDeviceNotFound
	}
	return d, nil
}

func (f *fakeDeviceRepo) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	f.touched = append(f.touched, id)
	return nil
}

type fakePolicyRepo struct {
	policy company.Policy
}

func (f *fakePolicyRepo) GetPolicy(ctx context.Context, companyID string) (company.Policy, error) {
	return f.policy, nil
}

func (f *fakePolicyRepo) ListAutoClockCompanies(ctx context.Context) ([]company.Policy, error) {
	return nil, nil
}

func (f *fakePolicyRepo) ListCompanyIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}

type fakeEmployeeRepo struct{}

func (f *fakeEmployeeRepo) GetActiveByUserID(ctx context.Context, userID, companyID string) (employee.Employee, error) {
	return employee.Employee{ID: "emp-1", UserID: userID, CompanyID: companyID, IsActive: true}, nil
}

func (f *fakeEmployeeRepo) GetSettings(ctx context.Context, employeeID, companyID string) (employee.AttendanceSettings, error) {
	return employee.AttendanceSettings{}, nil
}

func (f *fakeEmployeeRepo) ListActiveByCompany(ctx context.Context, companyID string) ([]employee.Employee, error) {
	return nil, nil
}

func (f *fakeEmployeeRepo) ListAdmins(ctx context.Context, companyID string) ([]employee.Employee, error) {
	return nil, nil
}

type fakeAutoclockRepo struct {
	pings []autoclock.LocationPing
}

func (f *fakeAutoclockRepo) EnqueueJob(ctx context.Context, companyID string, workDate time.Time, jobType autoclock.JobType) (bool, error) {
	return false, nil
}

func (f *fakeAutoclockRepo) DequeuePending(ctx context.Context, limit int) ([]autoclock.Job, error) {
	return nil, nil
}

func (f *fakeAutoclockRepo) CompleteJob(ctx context.Context, jobID string, processed, errored int) error {
	return nil
}

func (f *fakeAutoclockRepo) FailJob(ctx context.Context, jobID string, message string) error {
	return nil
}

func (f *fakeAutoclockRepo) InsertPing(ctx context.Context, ping autoclock.LocationPing) (autoclock.LocationPing, error) {
	ping.ID = "ping-1"
	f.pings = append(f.pings, ping)
	return ping, nil
}

func (f *fakeAutoclockRepo) ListClockInCandidates(ctx context.Context, companyID, workDate string, freshness time.Duration, requireInside bool) ([]autoclock.Candidate, error) {
	return nil, nil
}

func (f *fakeAutoclockRepo) ListClockOutCandidates(ctx context.Context, companyID, workDate string, freshness, sustainedOutside time.Duration) ([]autoclock.Candidate, error) {
	return nil, nil
}

func newService(t *testing.T) (*DeviceServiceImpl, *fakeDeviceRepo, *fakeAutoclockRepo) {
	t.Helper()
	lat, lon := 6.5244, 3.3792
	devRepo := &fakeDeviceRepo{devices: map[string]device.Device{}}
	acRepo := &fakeAutoclockRepo{}
	svc := NewDeviceService(devRepo, &fakePolicyRepo{policy: company.Policy{
		CompanyID:            "co-1",
		OfficeLatitude:       &lat,
		OfficeLongitude:      &lon,
		GeofenceRadiusMeters: 100,
	}}, &fakeEmployeeRepo{}, acRepo)
	return svc, devRepo, acRepo
}

func TestRegisterDevice_StoresOnlyHash(t *testing.T) {
	svc, devRepo, _ := newService(t)

	resp, err := svc.RegisterDevice(context.Background(), device.RegisterRequest{
		UserID: "u-1", CompanyID: "co-1", Name: "Ada's phone",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.DeviceKey)

	stored := devRepo.devices[resp.DeviceID]
	assert.NotEqual(t, resp.DeviceKey, stored.KeyHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.KeyHash), []byte(resp.DeviceKey)))
}

func TestIngestPing(t *testing.T) {
	svc, _, acRepo := newService(t)

	reg, err := svc.RegisterDevice(context.Background(), device.RegisterRequest{
		UserID: "u-1", CompanyID: "co-1", Name: "Ada's phone",
	})
	require.NoError(t, err)

	t.Run("inside geofence", func(t *testing.T) {
		resp, err := svc.IngestPing(context.Background(), device.PingRequest{
			DeviceID: reg.DeviceID, DeviceKey: reg.DeviceKey,
			Latitude: 6.5244, Longitude: 3.3792,
			PermissionState: "granted",
		})
		require.NoError(t, err)
		assert.True(t, resp.IsInsideGeofence)

		require.Len(t, acRepo.pings, 1)
		assert.Equal(t, "co-1", acRepo.pings[0].CompanyID)
		assert.Equal(t, "u-1", acRepo.pings[0].UserID)
		assert.Equal(t, autoclock.PermissionGranted, acRepo.pings[0].PermissionState)
	})

	t.Run("outside geofence", func(t *testing.T) {
		resp, err := svc.IngestPing(context.Background(), device.PingRequest{
			DeviceID: reg.DeviceID, DeviceKey: reg.DeviceKey,
			Latitude: 6.6, Longitude: 3.5,
			PermissionState: "granted",
		})
		require.NoError(t, err)
		assert.False(t, resp.IsInsideGeofence)
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		_, err := svc.IngestPing(context.Background(), device.PingRequest{
			DeviceID: reg.DeviceID, DeviceKey: "not-the-key",
			Latitude: 6.5244, Longitude: 3.3792,
			PermissionState: "granted",
		})
		assert.ErrorIs(t, err, device.ErrInvalidDeviceKey)
	})

	t.Run("unknown device", func(t *testing.T) {
		_, err := svc.IngestPing(context.Background(), device.PingRequest{
			DeviceID: "dev-ghost", DeviceKey: "whatever",
			Latitude: 6.5244, Longitude: 3.3792,
			PermissionState: "granted",
		})
		assert.ErrorIs(t, err, device.ErrDeviceNotFound)
	})

	t.Run("bad permission state rejected", func(t *testing.T) {
		_, err := svc.IngestPing(context.Background(), device.PingRequest{
			DeviceID: reg.DeviceID, DeviceKey: reg.DeviceKey,
			Latitude: 6.5244, Longitude: 3.3792,
			PermissionState: "maybe",
		})
		assert.Error(t, err)
	})
}
