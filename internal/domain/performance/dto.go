package performance

type LeaderboardEntry struct {
	UserID              string   `json:"user_id"`
	EmployeeName        string   `json:"employee_name"`
	AttendanceScore     float64  `json:"attendance_score"`
	TaskCompletionScore *float64 `json:"task_completion_score"`
	OverallScore        float64  `json:"overall_score"`
	Tier                string   `json:"tier"`
	RankPosition        int      `json:"rank_position"`
}

type LeaderboardResponse struct {
	CompanyID  string             `json:"company_id"`
	PeriodDays int                `json:"period_days"`
	StartDate  string             `json:"start_date"`
	EndDate    string             `json:"end_date"`
	Entries    []LeaderboardEntry `json:"entries"`
}

type SnapshotResponse struct {
	UserID              string   `json:"user_id"`
	SnapshotDate        string   `json:"snapshot_date"`
	PeriodType          string   `json:"period_type"`
	AttendanceScore     float64  `json:"attendance_score"`
	TaskCompletionScore *float64 `json:"task_completion_score"`
	OverallScore        float64  `json:"overall_score"`
	Tier                string   `json:"tier"`
	RankPosition        int      `json:"rank_position"`
}
