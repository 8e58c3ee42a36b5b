package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"recycling-tracker/internal/analytics"
	"recycling-tracker/internal/api"
	"recycling-tracker/internal/constants"
	fxmodules "recycling-tracker/internal/fx"
	"recycling-tracker/internal/metrics"
	"recycling-tracker/internal/repository"
	"recycling-tracker/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newStatsCmd(e *env) *cobra.Command {
	var from, to, userID string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print aggregated recycling statistics",
		Example: `  # First quarter of 2024
  recyclectl stats --from 2024-01 --to 2024-03

  # Personal dashboard of one user
  recyclectl stats --user u_123`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.open(true)
			if err != nil {
				return err
			}
			defer db.Close()

			policy, err := fxmodules.ProvidePolicy(e.cfg, api.NewPolicyClient(e.logger), e.logger)
			if err != nil {
				return err
			}

			opts := service.StatsOptionsFromConfig(e.cfg)
			opts.CacheTTL = 0
			svc := service.NewStatsService(
				repository.NewReportRepository(db, e.logger),
				repository.NewUserRepository(db, e.logger),
				policy, opts, metrics.New(), e.logger,
			)

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if userID != "" {
				view, err := svc.Dashboard(ctx, userID)
				if err != nil {
					return err
				}
				printDashboard(out, view)
				return nil
			}

			rng, err := analytics.RangeEndingAt(from, to, analytics.MonthOf(time.Now().UTC()), constants.DefaultStatisticsMonths)
			if err != nil {
				return err
			}
			view, err := svc.Statistics(ctx, rng)
			if err != nil {
				return err
			}
			printStatistics(out, view)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First month, YYYY-MM (default 11 months before --to)")
	cmd.Flags().StringVar(&to, "to", "", "Last month, YYYY-MM (default current month)")
	cmd.Flags().StringVar(&userID, "user", "", "Show the dashboard of this user instead")
	return cmd
}

func kg(d decimal.Decimal) string {
	return analytics.FormatDecimal(d, 2) + " kg"
}

func printImpact(w io.Writer, impact service.Impact) {
	fmt.Fprintf(w, "CO2 avoided:\t%s kg\n", analytics.FormatNumber(impact.Rounded.CO2AvoidedKg))
	fmt.Fprintf(w, "Tree equivalent:\t%s\n", analytics.FormatNumber(impact.Rounded.TreeEquivalent))
	fmt.Fprintf(w, "Car equivalent:\t%s\n", analytics.FormatNumber(impact.Rounded.CarEquivalent))
}

func printSeries(w io.Writer, series []analytics.SeriesPoint) {
	fmt.Fprintln(w, "MONTH\tREPORTS\tMASS\tACTIVE USERS")
	for _, p := range series {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Month,
			analytics.FormatNumber(int64(p.ReportCount)), kg(p.MassKg),
			analytics.FormatNumber(int64(p.ActiveUsers)))
	}
}

func printMaterials(w io.Writer, materials []analytics.MaterialShare) {
	fmt.Fprintln(w, "MATERIAL\tREPORTS\tMASS\tSHARE")
	for _, m := range materials {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f%%\n", m.Material,
			analytics.FormatNumber(int64(m.Count)), kg(m.MassKg), m.SharePct)
	}
}

func printStatistics(out io.Writer, v *service.StatisticsView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "Range:\t%s\n", v.Range)
	fmt.Fprintf(w, "Reports:\t%s\n", analytics.FormatNumber(int64(v.TotalReports)))
	fmt.Fprintf(w, "Mass:\t%s\n", kg(v.TotalMassKg))
	fmt.Fprintf(w, "Active users:\t%s\n", analytics.FormatNumber(int64(v.ActiveUsers)))
	printImpact(w, v.Impact)
	fmt.Fprintf(w, "\n%s\n\n", v.Impact.Summary)

	printSeries(w, v.Series)
	fmt.Fprintln(w)
	printMaterials(w, v.Materials)

	if len(v.Leaderboard) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "POS\tUSER\tMASS")
		for _, e := range v.Leaderboard {
			name := e.Name
			if name == "" {
				name = e.UserID
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", e.Position, name, kg(e.Score))
		}
	}
}

func printDashboard(out io.Writer, v *service.DashboardView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "User:\t%s (%s)\n", v.User.Name, v.User.ID)
	fmt.Fprintf(w, "Points:\t%s\n", analytics.FormatNumber(v.User.Points))
	fmt.Fprintf(w, "Rank:\t%d of %d (ahead of %.0f%% of users)\n", v.Ranking.Position, v.Ranking.TotalUsers, v.Ranking.Percentile)
	fmt.Fprintf(w, "Reports:\t%s\n", analytics.FormatNumber(int64(v.TotalReports)))
	fmt.Fprintf(w, "Mass:\t%s\n", kg(v.TotalMassKg))
	printImpact(w, v.Impact)

	switch {
	case v.AllMilestonesCompleted:
		fmt.Fprintln(w, "Milestone:\tall completed")
	case v.Milestone != nil:
		fmt.Fprintf(w, "Milestone:\t%s (%d/%d, %.0f%%)\n", v.Milestone.Tier.Label,
			v.Milestone.Achieved, v.Milestone.Tier.Threshold, v.Milestone.PercentComplete)
	}
	fmt.Fprintln(w)
	printSeries(w, v.Series)
}
