package commands

import (
	"os"

	"foodpillory/internal/report"
	"foodpillory/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	reportSources sourceFlags
	reportYear    int
	reportTop     int
)

func init() {
	reportSources.register(reportCmd)
	reportCmd.Flags().IntVar(&reportYear, "year", 0, "The closure year to break down, defaults to the latest one.")
	reportCmd.Flags().IntVar(&reportTop, "top", report.DefaultTop, "How many offenses to show.")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [--year <year>] [--top <count>]",
	Short: "Prints closures per year, categories and offense frequencies.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		loader, release := reportSources.loader(cfg)
		defer release()

		ds, err := loader.Dataset(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to load dataset", err)
		}

		r, err := report.Build(ds, report.Options{
			Year:              reportYear,
			Top:               reportTop,
			TrendOffenses:     cfg.TrendOffenses,
			StillClosedStatus: cfg.StillClosedStatus,
		})
		if err != nil {
			serviceutil.Fatal("failed to build report", err)
		}
		report.Render(os.Stdout, r)
	},
}
