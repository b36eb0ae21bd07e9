package attendance

import (
	"context"
)

// Service is the attendance policy engine: it decides whether a clock-in or
// clock-out attempt is permitted, computes its timing status, and fires the
// policy-event notifications.
type Service interface {
	// CheckIn evaluates a clock-in attempt against company policy and, when
	// admitted, creates the attendance record.
	CheckIn(ctx context.Context, req CheckInRequest) (RecordResponse, error)

	// CheckOut finalizes an open attendance record, force-closing any open
	// break first.
	CheckOut(ctx context.Context, req CheckOutRequest) (RecordResponse, error)

	// StartBreak opens a break inside the user's open attendance session.
	StartBreak(ctx context.Context, req BreakRequest) (BreakResponse, error)

	// EndBreak closes the user's open break.
	EndBreak(ctx context.Context, req BreakRequest) (BreakResponse, error)

	// ListAttendance retrieves records for admins, breaks included.
	ListAttendance(ctx context.Context, filter ListFilter, companyID string) (ListResponse, error)

	// GetMyAttendance retrieves the calling employee's own records.
	GetMyAttendance(ctx context.Context, userID, companyID string, filter ListFilter) (ListResponse, error)
}

// BiometricVerifier is the opaque proof gate consumed during manual clock
// events when the company requires biometrics. The cryptographic protocol
// behind it lives outside this engine.
type BiometricVerifier interface {
	Verify(ctx context.Context, userID string, proof string) bool
}
