package employee

import (
	"context"
)

// Repository defines data access for employees and their attendance settings.
// All methods take companyID to prevent cross-company data access.
type Repository interface {
	// GetActiveByUserID resolves the active, non-deleted employee for a user
	// within a company. Returns ErrInvalidUser when no such employee exists.
	GetActiveByUserID(ctx context.Context, userID, companyID string) (Employee, error)

	// GetSettings loads the employee's attendance settings. A missing row
	// yields zero-value settings, not an error.
	GetSettings(ctx context.Context, employeeID, companyID string) (AttendanceSettings, error)

	// ListActiveByCompany returns all active, non-deleted employees.
	ListActiveByCompany(ctx context.Context, companyID string) ([]Employee, error)

	// ListAdmins returns active admins and the owner, the recipients of
	// policy-event notifications.
	ListAdmins(ctx context.Context, companyID string) ([]Employee, error)
}
