package company

import "errors"

var (
	ErrCompanyNotFound       = errors.New("company not found")
	ErrGeofenceNotConfigured = errors.New("no clock-in locations are configured for this company")
)
