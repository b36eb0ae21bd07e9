package performance

import (
	"context"
	"time"
)

type Service interface {
	// GetLeaderboard scores the company's active employees over the rolling
	// window and returns them ranked.
	GetLeaderboard(ctx context.Context, companyID string) (LeaderboardResponse, error)

	// GetSnapshots returns the persisted snapshot rows for a date.
	GetSnapshots(ctx context.Context, companyID string, date time.Time) ([]SnapshotResponse, error)

	// SnapshotCompany computes and persists snapshots for one company
	// immediately, outside the nightly schedule.
	SnapshotCompany(ctx context.Context, companyID string) error
}
