package response

import (
	"errors"
	"net/http"

	"github.com/stafftrack/attendance-backend-go/internal/domain/attendance"
	"github.com/stafftrack/attendance-backend-go/internal/domain/company"
	"github.com/stafftrack/attendance-backend-go/internal/domain/device"
	"github.com/stafftrack/attendance-backend-go/internal/domain/employee"
	"github.com/stafftrack/attendance-backend-go/internal/domain/notification"
	"github.com/stafftrack/attendance-backend-go/internal/pkg/validation"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validation.Errors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Geofence rejections carry the measured distance in their message.
	var geofenceErr *attendance.GeofenceError
	if errors.As(err, &geofenceErr) {
		Forbidden(w, geofenceErr.Error())
		return
	}

	// Attendance domain errors
	switch {
	case errors.Is(err, attendance.ErrOutsideGeofence):
		Forbidden(w, err.Error())
	case errors.Is(err, attendance.ErrBiometricRequired):
		Forbidden(w, err.Error())
	case errors.Is(err, attendance.ErrAlreadyClockedIn):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrBreakAlreadyActive):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrNotAWorkingDay):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrAutoDisabled):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrNotClockedIn):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrBreaksNotEnabled):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrNoActiveBreak):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrRecordNotFound):
		NotFound(w, "Attendance record not found")

	// Company domain errors
	case errors.Is(err, company.ErrCompanyNotFound):
		NotFound(w, "Company not found")
	case errors.Is(err, company.ErrGeofenceNotConfigured):
		BadRequest(w, err.Error(), nil)

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrInvalidUser):
		Unauthorized(w, err.Error())

	// Device domain errors
	case errors.Is(err, device.ErrDeviceNotFound):
		NotFound(w, "Device not found")
	case errors.Is(err, device.ErrInvalidDeviceKey):
		Unauthorized(w, err.Error())

	// Notification domain errors
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
