package fx

import (
	"context"
	"database/sql"

	"recycling-tracker/internal/analytics"
	"recycling-tracker/internal/api"
	"recycling-tracker/internal/config"
	"recycling-tracker/internal/constants"
	"recycling-tracker/internal/database"
	"recycling-tracker/internal/logger"
	"recycling-tracker/internal/metrics"
	"recycling-tracker/internal/middleware"
	"recycling-tracker/internal/repository"
	"recycling-tracker/internal/server"
	"recycling-tracker/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// ProvidePolicy resolves the impact policy: a remote document wins over a
// local file, and the built-in defaults apply when neither is configured.
func ProvidePolicy(cfg *config.Config, client *api.PolicyClient, logger zerolog.Logger) (analytics.Policy, error) {
	switch {
	case cfg.ImpactConfigURL != "":
		ctx, cancel := context.WithTimeout(context.Background(), constants.PolicyFetchTimeout)
		defer cancel()
		return client.FetchPolicy(ctx, cfg.ImpactConfigURL)
	case cfg.ImpactConfigPath != "":
		p, err := analytics.LoadPolicy(cfg.ImpactConfigPath)
		if err != nil {
			return analytics.Policy{}, err
		}
		logger.Info().Str("path", cfg.ImpactConfigPath).Int("materials", len(p.Factors)).Msg("impact policy loaded")
		return p, nil
	}
	logger.Info().Msg("using default impact policy")
	return analytics.DefaultPolicy(), nil
}

func ProvideReportReader(r *repository.ReportRepository) service.ReportReader { return r }

func ProvideUserReader(r *repository.UserRepository) service.UserReader { return r }

func ProvideStatusUpdater(r *repository.ReportRepository) service.ReportStatusUpdater { return r }

func ProvideInvalidator(s *service.StatsService) service.Invalidator { return s }

func ProvideStatsProvider(s *service.StatsService) server.StatsProvider { return s }

func ProvideReportStatusService(s *service.ReportService) server.ReportStatusUpdater { return s }

func ProvidePinger(db *sql.DB) server.Pinger { return db }

var Module = fx.Options(
	config.Module,
	logger.Module,
	fx.Provide(database.New),
	metrics.Module,
	// repos
	fx.Provide(repository.NewReportRepository),
	fx.Provide(repository.NewUserRepository),
	fx.Provide(ProvideReportReader, ProvideUserReader, ProvideStatusUpdater),
	// policy
	fx.Provide(api.NewPolicyClient),
	fx.Provide(ProvidePolicy),
	// svc
	fx.Provide(service.StatsOptionsFromConfig),
	fx.Provide(service.NewStatsService),
	fx.Provide(ProvideInvalidator),
	fx.Provide(service.NewReportService),
	// server
	fx.Provide(middleware.NewRateLimiter),
	fx.Provide(ProvideStatsProvider, ProvideReportStatusService, ProvidePinger),
	fx.Provide(server.NewStatsServer),
)
