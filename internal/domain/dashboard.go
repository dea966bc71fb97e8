package domain

import "time"

// DashboardStats is the set of counters shown on the dashboard home screen
type DashboardStats struct {
	ActiveProfiles int64     `json:"active_profiles"`
	CallsToday     int64     `json:"calls_today"`
	OpenIssues     int64     `json:"open_issues"`
	UrgentIssues   int64     `json:"urgent_issues"`
	GeneratedAt    time.Time `json:"generated_at"`
}
