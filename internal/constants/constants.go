package constants

import "time"

const (
	DefaultCacheTTL       = 5 * time.Minute
	PolicyFetchTimeout    = 10 * time.Second
	DatabaseTimeout       = 5 * time.Second
	RequestTimeout        = 30 * time.Second
	VisitorCleanupEvery   = 1 * time.Minute
	VisitorIdleExpiration = 3 * time.Minute
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLeaderboardSize   = 10
	DefaultTopLocations      = 5
	DefaultDashboardMonths   = 6
	DefaultStatisticsMonths  = 12
	DefaultRateLimitRPS      = 5
	DefaultRateLimitBurst    = 30
	MaxStatisticsRangeMonths = 120
	PointsPerVerifiedReport  = 10
)
