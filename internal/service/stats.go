package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recycling-tracker/internal/analytics"
	"recycling-tracker/internal/cache"
	"recycling-tracker/internal/config"
	"recycling-tracker/internal/constants"
	"recycling-tracker/internal/domain"
	"recycling-tracker/internal/metrics"
	"recycling-tracker/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type ReportReader interface {
	List(ctx context.Context, filter repository.ReportFilter) ([]domain.Report, error)
}

type UserReader interface {
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
}

type StatsOptions struct {
	LeaderboardSize int
	TopLocations    int
	SeriesMonths    int
	CacheTTL        time.Duration
}

func StatsOptionsFromConfig(cfg *config.Config) StatsOptions {
	return StatsOptions{
		LeaderboardSize: cfg.LeaderboardSize,
		TopLocations:    constants.DefaultTopLocations,
		SeriesMonths:    cfg.DashboardSeriesMonths,
		CacheTTL:        cfg.CacheTTL,
	}
}

var verifiedOnly = []domain.ReportStatus{domain.StatusVerified}

// StatsService builds the home, dashboard and statistics views. Each view is
// computed from a fresh fetch; the only state kept across requests is the
// TTL cache in front of the finished views.
type StatsService struct {
	reports ReportReader
	users   UserReader
	policy  analytics.Policy
	opts    StatsOptions
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time

	homeCache      *cache.Cache[*HomeView]
	dashboardCache *cache.Cache[*DashboardView]
	statsCache     *cache.Cache[*StatisticsView]
}

func NewStatsService(
	reports ReportReader,
	users UserReader,
	policy analytics.Policy,
	opts StatsOptions,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *StatsService {
	return &StatsService{
		reports:        reports,
		users:          users,
		policy:         policy,
		opts:           opts,
		metrics:        m,
		logger:         logger,
		now:            time.Now,
		homeCache:      cache.New[*HomeView](opts.CacheTTL),
		dashboardCache: cache.New[*DashboardView](opts.CacheTTL),
		statsCache:     cache.New[*StatisticsView](opts.CacheTTL),
	}
}

// Invalidate drops every cached view.
func (s *StatsService) Invalidate() {
	s.homeCache.Purge()
	s.dashboardCache.Purge()
	s.statsCache.Purge()
	s.logger.Debug().Msg("stats caches invalidated")
}

func (s *StatsService) Home(ctx context.Context) (*HomeView, error) {
	return cached(ctx, s, "home", "home", s.homeCache, s.buildHome)
}

func (s *StatsService) Dashboard(ctx context.Context, userID string) (*DashboardView, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", repository.ErrInvalidInput)
	}
	return cached(ctx, s, "dashboard", "dashboard:"+userID, s.dashboardCache, func(ctx context.Context) (*DashboardView, error) {
		return s.buildDashboard(ctx, userID)
	})
}

func (s *StatsService) Statistics(ctx context.Context, r analytics.MonthRange) (*StatisticsView, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.Len() > constants.MaxStatisticsRangeMonths {
		return nil, fmt.Errorf("%w: %s spans %d months, max is %d",
			analytics.ErrInvalidRange, r, r.Len(), constants.MaxStatisticsRangeMonths)
	}
	return cached(ctx, s, "statistics", "statistics:"+r.String(), s.statsCache, func(ctx context.Context) (*StatisticsView, error) {
		return s.buildStatistics(ctx, r)
	})
}

// cached serves a view through c. The load is shared by every concurrent
// caller of key, so it runs detached from the cancellation of the caller that
// started it; the builders still bound it with constants.RequestTimeout.
func cached[V any](ctx context.Context, s *StatsService, view, key string, c *cache.Cache[V], build func(context.Context) (V, error)) (V, error) {
	v, hit, err := c.GetOrLoad(key, func() (V, error) {
		start := time.Now()
		v, err := build(context.WithoutCancel(ctx))
		s.metrics.ViewBuildSeconds.WithLabelValues(view).Observe(time.Since(start).Seconds())
		return v, err
	})
	if c.Enabled() {
		result := "miss"
		if hit {
			result = "hit"
		}
		s.metrics.CacheRequests.WithLabelValues(view, result).Inc()
	}
	return v, err
}

func (s *StatsService) buildHome(ctx context.Context) (*HomeView, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	reports, users, err := s.fetch(ctx, repository.ReportFilter{Statuses: verifiedOnly})
	if err != nil {
		return nil, err
	}

	snap, err := s.aggregate(ctx, reports)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	month := analytics.MonthOf(now)
	view := &HomeView{
		GeneratedAt:  now,
		TotalReports: snap.TotalReports,
		TotalMassKg:  snap.TotalMassKg,
		TotalUsers:   len(users),
		ThisMonth:    compareMonth(snap, month),
		ActiveUsers:  snap.PerMonth[month].ActiveUsers,
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		view.Impact = s.impact(ctx, snap)
		return nil
	})
	g.Go(func() error {
		view.Materials = snap.MaterialsByMass()
		view.TopLocations = snap.TopLocations(s.opts.TopLocations)
		return nil
	})
	g.Go(func() error {
		view.Leaderboard = analytics.Leaderboard(analytics.PointsScores(users), s.opts.LeaderboardSize)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("reports", view.TotalReports).
		Int("users", view.TotalUsers).
		Msg("home view built")
	return view, nil
}

func (s *StatsService) buildDashboard(ctx context.Context, userID string) (*DashboardView, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	var (
		user    *domain.User
		reports []domain.Report
		users   []domain.User
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.users.Get(gCtx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		reports, err = s.reports.List(gCtx, repository.ReportFilter{UserID: userID})
		if err != nil {
			return fmt.Errorf("failed to fetch reports: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		users, err = s.users.List(gCtx)
		if err != nil {
			return fmt.Errorf("failed to fetch users: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	statusCounts := map[domain.ReportStatus]int{
		domain.StatusPending:  0,
		domain.StatusVerified: 0,
		domain.StatusRejected: 0,
	}
	verified := make([]domain.Report, 0, len(reports))
	for _, r := range reports {
		statusCounts[r.Status]++
		if r.Status == domain.StatusVerified {
			verified = append(verified, r)
		}
	}

	snap, err := s.aggregate(ctx, verified)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	month := analytics.MonthOf(now)
	view := &DashboardView{
		GeneratedAt: now,
		User: UserSummary{
			ID:         user.ID,
			Name:       user.Name,
			Points:     user.Points,
			StreakDays: user.StreakDays,
		},
		StatusCounts: statusCounts,
		TotalReports: snap.TotalReports,
		TotalMassKg:  snap.TotalMassKg,
		ThisMonth:    compareMonth(snap, month),
	}

	cg := new(errgroup.Group)
	cg.Go(func() error {
		view.Impact = s.impact(ctx, snap)
		view.Materials = snap.MaterialsByMass()
		return nil
	})
	cg.Go(func() error {
		entry, err := analytics.Rank(analytics.PointsScores(users), userID)
		if err != nil {
			return fmt.Errorf("failed to rank user %s: %w", userID, err)
		}
		view.Ranking = entry
		return nil
	})
	cg.Go(func() error {
		progress, err := analytics.NextMilestone(snap.TotalReports, s.policy.Milestones)
		switch {
		case errors.Is(err, analytics.ErrAllMilestonesCompleted):
			view.AllMilestonesCompleted = true
		case err != nil:
			return fmt.Errorf("failed to compute milestone: %w", err)
		default:
			view.Milestone = &progress
		}
		return nil
	})
	cg.Go(func() error {
		series, err := analytics.BuildMonthlySeries(snap.PerMonth, analytics.LastMonths(month, s.opts.SeriesMonths))
		if err != nil {
			return fmt.Errorf("failed to build series: %w", err)
		}
		view.Series = series
		return nil
	})
	if err := cg.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("reports", view.TotalReports).
		Int("position", view.Ranking.Position).
		Msg("dashboard view built")
	return view, nil
}

func (s *StatsService) buildStatistics(ctx context.Context, r analytics.MonthRange) (*StatisticsView, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	from, to := r.Bounds(time.UTC)
	reports, users, err := s.fetch(ctx, repository.ReportFilter{From: from, To: to, Statuses: verifiedOnly})
	if err != nil {
		return nil, err
	}

	snap, err := s.aggregate(ctx, reports)
	if err != nil {
		return nil, err
	}

	view := &StatisticsView{
		GeneratedAt:  s.now().UTC(),
		Range:        r,
		TotalReports: snap.TotalReports,
		TotalMassKg:  snap.TotalMassKg,
		ActiveUsers:  distinctUsers(reports),
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		series, err := analytics.BuildMonthlySeries(snap.PerMonth, r)
		if err != nil {
			return fmt.Errorf("failed to build series: %w", err)
		}
		view.Series = series
		return nil
	})
	g.Go(func() error {
		view.Impact = s.impact(ctx, snap)
		return nil
	})
	g.Go(func() error {
		view.Materials = snap.MaterialsByMass()
		view.Locations = snap.TopLocations(0)
		return nil
	})
	g.Go(func() error {
		view.Leaderboard = analytics.Leaderboard(analytics.MassScores(users, reports), s.opts.LeaderboardSize)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("range", r.String()).
		Int("reports", view.TotalReports).
		Msg("statistics view built")
	return view, nil
}

// fetch loads reports and users concurrently. It is the only I/O of a view.
func (s *StatsService) fetch(ctx context.Context, filter repository.ReportFilter) ([]domain.Report, []domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	var (
		reports []domain.Report
		users   []domain.User
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reports, err = s.reports.List(gCtx, filter)
		if err != nil {
			return fmt.Errorf("failed to fetch reports: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		users, err = s.users.List(gCtx)
		if err != nil {
			return fmt.Errorf("failed to fetch users: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch view data")
		return nil, nil, err
	}
	return reports, users, nil
}

func (s *StatsService) aggregate(ctx context.Context, reports []domain.Report) (analytics.Snapshot, error) {
	snap, err := analytics.Aggregate(reports)
	if err != nil {
		s.log(ctx).Error().Err(err).Msg("malformed report in aggregation input")
		return analytics.Snapshot{}, fmt.Errorf("failed to aggregate reports: %w", err)
	}
	return snap, nil
}

// impact computes the snapshot impact and reports unlisted materials as a
// data quality signal.
func (s *StatsService) impact(ctx context.Context, snap analytics.Snapshot) Impact {
	m := analytics.ComputeImpact(snap.PerMaterial, s.policy.Factors)
	for _, material := range m.UnlistedMaterials {
		s.metrics.UnlistedMaterial.WithLabelValues(string(material)).Inc()
		s.log(ctx).Warn().
			Str("material", string(material)).
			Str("mass_kg", snap.PerMaterial[material].MassKg.String()).
			Msg("material has no impact factor, counted as zero")
	}
	return newImpact(m)
}

// log prefers the request scoped logger set by the RequestID middleware.
func (s *StatsService) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.logger
}

func compareMonth(snap analytics.Snapshot, month analytics.Month) MonthComparison {
	reports, mass := snap.MonthOverMonth(month)
	return MonthComparison{Month: month, Reports: reports, MassKg: mass}
}

func distinctUsers(reports []domain.Report) int {
	seen := make(map[string]struct{})
	for _, r := range reports {
		seen[r.UserID] = struct{}{}
	}
	return len(seen)
}
