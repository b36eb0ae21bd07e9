package device

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/stafftrack/attendance-backend-go/internal/domain/autoclock"
	"github.com/stafftrack/attendance-backend-go/internal/domain/company"
	"github.com/stafftrack/attendance-backend-go/internal/domain/device"
	"github.com/stafftrack/attendance-backend-go/internal/domain/employee"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/geo"
)

// DeviceServiceImpl authenticates the location-ping feed the auto-attendance
// scheduler consumes. Devices register once and receive a key; every ping
// must present it.
type DeviceServiceImpl struct {
	deviceRepo    device.Repository
	policyRepo    company.PolicyRepository
	employeeRepo  employee.Repository
	autoclockRepo autoclock.Repository

	clock func() time.Time
}

func NewDeviceService(
	deviceRepo device.Repository,
	policyRepo company.PolicyRepository,
	employeeRepo employee.Repository,
	autoclockRepo autoclock.Repository,
) *DeviceServiceImpl {
	return &DeviceServiceImpl{
		deviceRepo:    deviceRepo,
		policyRepo:    policyRepo,
		employeeRepo:  employeeRepo,
		autoclockRepo: autoclockRepo,
		clock:         time.Now,
	}
}

// RegisterDevice creates a device for the calling employee and returns the
// plaintext key. The key is never recoverable afterwards; only its bcrypt
// hash is stored.
func (s *DeviceServiceImpl) RegisterDevice(ctx context.Context, req device.RegisterRequest) (device.RegisterResponse, error) {
	if err := req.Validate(); err != nil {
		return device.RegisterResponse{}, err
	}

	if _, err := s.employeeRepo.GetActiveByUserID(ctx, req.UserID, req.CompanyID); err != nil {
		return device.RegisterResponse{}, err
	}

	key := uuid.New().String()
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return device.RegisterResponse{}, fmt.Errorf("failed to hash device key: %w", err)
	}

	created, err := s.deviceRepo.Create(ctx, device.Device{
		CompanyID: req.CompanyID,
		UserID:    req.UserID,
		Name:      req.Name,
		KeyHash:   string(hash),
	})
	if err != nil {
		return device.RegisterResponse{}, fmt.Errorf("failed to create device: %w", err)
	}

	return device.RegisterResponse{
		DeviceID:  created.ID,
		DeviceKey: key,
	}, nil
}

// IngestPing authenticates a device, evaluates the ping against the
// company's primary geofence, and stores it for the scheduler.
func (s *DeviceServiceImpl) IngestPing(ctx context.Context, req device.PingRequest) (device.PingResponse, error) {
	if err := req.Validate(); err != nil {
		return device.PingResponse{}, err
	}

	dev, err := s.deviceRepo.GetByID(ctx, req.DeviceID)
	if err != nil {
		return device.PingResponse{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(dev.KeyHash), []byte(req.DeviceKey)) != nil {
		return device.PingResponse{}, device.ErrInvalidDeviceKey
	}

	policy, err := s.policyRepo.GetPolicy(ctx, dev.CompanyID)
	if err != nil {
		return device.PingResponse{}, err
	}

	point := geo.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude}
	inside := false
	if center, ok := policy.OfficeCoordinates(); ok && point.Valid() {
		inside = geo.WithinRadius(point, center, policy.GeofenceRadiusMeters)
	}

	now := s.clock().UTC()
	ping, err := s.autoclockRepo.InsertPing(ctx, autoclock.LocationPing{
		CompanyID:        dev.CompanyID,
		UserID:           dev.UserID,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		IsInsideGeofence: inside,
		PermissionState:  autoclock.PermissionState(req.PermissionState),
		CreatedAt:        now,
	})
	if err != nil {
		return device.PingResponse{}, fmt.Errorf("failed to store ping: %w", err)
	}

	if err := s.deviceRepo.TouchLastSeen(ctx, dev.ID, now); err != nil {
		return device.PingResponse{}, fmt.Errorf("failed to touch device: %w", err)
	}

	return device.PingResponse{
		ID:               ping.ID,
		IsInsideGeofence: inside,
		CreatedAt:        now.Format("2006-01-02 15:04:05"),
	}, nil
}
