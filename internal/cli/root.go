package cli

import (
	"database/sql"
	"fmt"
	"os"

	"recycling-tracker/internal/config"
	"recycling-tracker/internal/database"
	"recycling-tracker/internal/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// env is the state shared by every subcommand once the root pre-run has
// resolved configuration.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// open connects to the configured database and, unless migrate is false,
// applies pending migrations.
func (e *env) open(migrate bool) (*sql.DB, error) {
	db, err := database.Open(e.cfg.DBPath, e.logger)
	if err != nil {
		return nil, err
	}
	if !migrate {
		return db, nil
	}
	if err := database.Migrate(db, e.logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// NewRootCmd creates the recyclectl command tree.
func NewRootCmd() *cobra.Command {
	e := &env{}
	var (
		dbPath     string
		policyPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "recyclectl",
		Short:         "Manage and inspect recycling report data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			if policyPath != "" {
				cfg.ImpactConfigPath = policyPath
				cfg.ImpactConfigURL = ""
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			cfg.LogFormat = "console"

			e.cfg = cfg
			e.logger = logger.NewWithWriter(cfg, cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default from DB_PATH)")
	cmd.PersistentFlags().StringVar(&policyPath, "policy", "", "Impact policy YAML file (default from IMPACT_CONFIG_PATH)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (default from LOG_LEVEL)")

	cmd.AddCommand(
		newMigrateCmd(e),
		newImportCmd(e),
		newStatsCmd(e),
	)
	return cmd
}

// Execute runs the command tree and reports the error on stderr.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
