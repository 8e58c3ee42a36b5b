package cli

import (
	"recycling-tracker/internal/database"

	"github.com/spf13/cobra"
)

func newMigrateCmd(e *env) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Example: `  # Bring the schema up to date
  recyclectl migrate

  # Revert the latest migration
  recyclectl migrate --down`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.open(!down)
			if err != nil {
				return err
			}
			defer db.Close()

			if down {
				if err := database.Rollback(db, e.logger); err != nil {
					return err
				}
			}

			v, err := database.Version(db)
			if err != nil {
				return err
			}
			cmd.Printf("Schema version: %d\n", v)
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Roll back the most recent migration")
	return cmd
}
