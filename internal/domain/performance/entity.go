package performance

import (
	"time"
)

// Tier labels a band of performers.
type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
)

// TierForRank maps a dense rank position to a tier. This is the nightly
// snapshot rule: rank-based, top three ranks only.
func TierForRank(rank int) Tier {
	switch rank {
	case 1:
		return TierPlatinum
	case 2:
		return TierGold
	case 3:
		return TierSilver
	default:
		return TierBronze
	}
}

// TierForScore maps an overall score to a tier. This is the live leaderboard
// rule: score-threshold based. The two rules intentionally coexist; see
// DESIGN.md for the open question behind them.
func TierForScore(score float64) Tier {
	switch {
	case score >= 90:
		return TierPlatinum
	case score >= 80:
		return TierGold
	case score >= 60:
		return TierSilver
	default:
		return TierBronze
	}
}

// PeriodType scopes a snapshot row; the nightly job writes "daily".
type PeriodType string

const PeriodDaily PeriodType = "daily"

// Snapshot is one employee's nightly score, rank, and tier. Unique on
// (company, user, date, period type); recomputed from scratch each run.
type Snapshot struct {
	ID           string
	CompanyID    string
	UserID       string
	SnapshotDate time.Time
	PeriodType   PeriodType

	AttendanceScore     float64
	TaskCompletionScore *float64
	OverallScore        float64
	Tier                Tier
	RankPosition        int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AttendanceStats aggregates one employee's attendance over a scoring window.
type AttendanceStats struct {
	UserID            string
	PresentDays       int
	LateDays          int
	EarlyDays         int
	ExcessLateMinutes int // sum of max(minutesLate - grace, 0)
}

// TaskStats aggregates one employee's task completion over a scoring window.
type TaskStats struct {
	UserID          string
	DueTotal        int
	CompletedOnTime int
	CompletedLate   int
	OverdueOpen     int
}
