package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"recycling-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string
	LogFormat  string
	CacheTTL   time.Duration

	// ImpactConfigURL takes precedence over ImpactConfigPath. With neither
	// set the built-in policy is used.
	ImpactConfigPath string
	ImpactConfigURL  string

	RateLimitRPS   float64
	RateLimitBurst int
	MetricsEnabled bool

	DashboardSeriesMonths int
	LeaderboardSize       int

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

func Load() (*Config, error) {
	envLoaded := godotenv.Load() == nil

	cfg := &Config{
		DBPath:           getEnv("DB_PATH", "recycling.db"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		ImpactConfigPath: getEnv("IMPACT_CONFIG_PATH", ""),
		ImpactConfigURL:  getEnv("IMPACT_CONFIG_URL", ""),
		EnvFileLoaded:    envLoaded,
	}

	var err error
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", constants.DefaultCacheTTL); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getEnvFloat("RATE_LIMIT_RPS", constants.DefaultRateLimitRPS); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", constants.DefaultRateLimitBurst); err != nil {
		return nil, err
	}
	if cfg.MetricsEnabled, err = getEnvBool("METRICS_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.DashboardSeriesMonths, err = getEnvInt("DASHBOARD_SERIES_MONTHS", constants.DefaultDashboardMonths); err != nil {
		return nil, err
	}
	if cfg.LeaderboardSize, err = getEnvInt("LEADERBOARD_SIZE", constants.DefaultLeaderboardSize); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must not be negative, got %s", c.CacheTTL))
	}
	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be positive, got %v", c.RateLimitRPS))
	}
	if c.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", c.RateLimitBurst))
	}
	if c.DashboardSeriesMonths < 1 || c.DashboardSeriesMonths > constants.MaxStatisticsRangeMonths {
		errs = append(errs, fmt.Errorf("DASHBOARD_SERIES_MONTHS must be between 1 and %d, got %d",
			constants.MaxStatisticsRangeMonths, c.DashboardSeriesMonths))
	}
	if c.LeaderboardSize < 1 {
		errs = append(errs, fmt.Errorf("LEADERBOARD_SIZE must be positive, got %d", c.LeaderboardSize))
	}
	return errors.Join(errs...)
}

// LogSummary writes the effective configuration once the logger exists.
func LogSummary(cfg *Config, logger zerolog.Logger) {
	if !cfg.EnvFileLoaded {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}
	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("cache_ttl", cfg.CacheTTL).
		Str("impact_config_path", cfg.ImpactConfigPath).
		Str("impact_config_url", cfg.ImpactConfigURL).
		Float64("rate_limit_rps", cfg.RateLimitRPS).
		Int("rate_limit_burst", cfg.RateLimitBurst).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("configuration loaded")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

// getEnvDuration accepts Go durations ("90s", "5m") and "0" to disable.
func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

var Module = fx.Options(
	fx.Provide(Load),
	fx.Invoke(LogSummary),
)
