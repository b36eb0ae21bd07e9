package company

import (
	"context"
)

// PolicyRepository loads tenant attendance policy. The engine treats policy
// as read-only during a single decision.
type PolicyRepository interface {
	// GetPolicy loads a company's policy including its active named locations.
	GetPolicy(ctx context.Context, companyID string) (Policy, error)

	// ListAutoClockCompanies returns policies of companies with auto clock-in
	// or auto clock-out enabled.
	ListAutoClockCompanies(ctx context.Context) ([]Policy, error)

	// ListCompanyIDs returns all company IDs, for batch jobs that iterate
	// every tenant.
	ListCompanyIDs(ctx context.Context) ([]string, error)
}
