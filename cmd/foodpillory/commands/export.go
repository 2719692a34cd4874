package commands

import (
	"log/slog"

	"foodpillory/internal/aggregate"
	"foodpillory/internal/dataset"
	"foodpillory/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	exportSources sourceFlags
	exportYear    int
	exportOutput  string
)

func init() {
	exportSources.register(exportCmd)
	exportCmd.Flags().IntVar(&exportYear, "year", 0, "Only export facilities closed in this year.")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "The csv file to write.")
	exportCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export --output <path/to/output.csv> [--year <year>]",
	Short: "Writes the union of both snapshots, optionally for a single year, to one csv file.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		loader, release := exportSources.loader(cfg)
		defer release()

		ds, err := loader.Dataset(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to load dataset", err)
		}
		if exportYear != 0 {
			ds = aggregate.ClosedIn(ds, exportYear)
		}

		err = dataset.WriteFile(exportOutput, ds)
		if err != nil {
			serviceutil.Fatal("failed to write export", err)
		}
		slog.Info("exported dataset", "path", exportOutput, "records", len(ds))
	},
}
