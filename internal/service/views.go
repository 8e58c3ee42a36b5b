package service

import (
	"time"

	"recycling-tracker/internal/analytics"
	"recycling-tracker/internal/domain"

	"github.com/shopspring/decimal"
)

// Impact bundles exact metrics with their display form.
type Impact struct {
	analytics.ImpactMetrics
	Rounded analytics.RoundedImpact `json:"rounded"`
	Summary string                  `json:"summary"`
}

func newImpact(m analytics.ImpactMetrics) Impact {
	return Impact{ImpactMetrics: m, Rounded: m.Rounded(), Summary: m.Summary()}
}

// MonthComparison is the current month measured against the previous one.
type MonthComparison struct {
	Month   analytics.Month `json:"month"`
	Reports analytics.Delta `json:"reports"`
	MassKg  analytics.Delta `json:"mass_kg"`
}

type HomeView struct {
	GeneratedAt  time.Time                  `json:"generated_at"`
	TotalReports int                        `json:"total_reports"`
	TotalMassKg  decimal.Decimal            `json:"total_mass_kg"`
	TotalUsers   int                        `json:"total_users"`
	Impact       Impact                     `json:"impact"`
	ThisMonth    MonthComparison            `json:"this_month"`
	ActiveUsers  int                        `json:"active_users_this_month"`
	Materials    []analytics.MaterialShare  `json:"materials"`
	TopLocations []analytics.LocationRollup `json:"top_locations"`
	Leaderboard  []analytics.RankingEntry   `json:"leaderboard"`
}

type UserSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Points     int64  `json:"points"`
	StreakDays int    `json:"streak_days"`
}

type DashboardView struct {
	GeneratedAt time.Time   `json:"generated_at"`
	User        UserSummary `json:"user"`

	// StatusCounts covers every report of the user; the figures below only
	// verified ones.
	StatusCounts map[domain.ReportStatus]int `json:"status_counts"`
	TotalReports int                         `json:"total_reports"`
	TotalMassKg  decimal.Decimal             `json:"total_mass_kg"`
	Materials    []analytics.MaterialShare   `json:"materials"`
	Impact       Impact                      `json:"impact"`

	Ranking analytics.RankingEntry `json:"ranking"`

	// Milestone is nil once every tier is met; AllMilestonesCompleted is
	// then true.
	Milestone              *analytics.MilestoneProgress `json:"milestone"`
	AllMilestonesCompleted bool                         `json:"all_milestones_completed"`

	Series    []analytics.SeriesPoint `json:"series"`
	ThisMonth MonthComparison         `json:"this_month"`
}

type StatisticsView struct {
	GeneratedAt  time.Time                  `json:"generated_at"`
	Range        analytics.MonthRange       `json:"range"`
	TotalReports int                        `json:"total_reports"`
	TotalMassKg  decimal.Decimal            `json:"total_mass_kg"`
	ActiveUsers  int                        `json:"active_users"`
	Series       []analytics.SeriesPoint    `json:"series"`
	Materials    []analytics.MaterialShare  `json:"materials"`
	Locations    []analytics.LocationRollup `json:"locations"`
	Impact       Impact                     `json:"impact"`
	Leaderboard  []analytics.RankingEntry   `json:"leaderboard"`
}
