package commands

import (
	"log/slog"
	"time"

	"foodpillory/internal/config"
	"foodpillory/internal/dataset"
	"foodpillory/internal/facility"
	"foodpillory/internal/scraper"
	"foodpillory/lib/restyutil"
	"foodpillory/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	scrapeArchive bool
	scrapeOutput  string
	scrapeDb      string
)

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeArchive, "archive", false, "Collect the archive instead of the current listings.")
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "", "The csv file to write, defaults to <data_dir>/<snapshot>.csv.")
	scrapeCmd.Flags().StringVar(&scrapeDb, "db", "", "Also replace the snapshot in this sqlite database.")
	rootCmd.AddCommand(scrapeCmd)
}

func newClient(cfg config.Config) *scraper.Client {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		serviceutil.Fatal("invalid timeout", err)
	}
	retryWait, err := cfg.RetryWaitDuration()
	if err != nil {
		serviceutil.Fatal("invalid retry wait", err)
	}

	var dump restyutil.InstrumentOutput
	if dumpHttp != "" {
		out, err := restyutil.NewFilesystemOutput(dumpHttp)
		if err != nil {
			serviceutil.Fatal("failed to prepare http dump directory", err)
		}
		dump = out
	}

	client, err := scraper.NewClient(scraper.ClientOptions{
		Headers:   map[string]string{"User-Agent": cfg.UserAgent},
		Timeout:   timeout,
		Attempts:  cfg.Retries,
		RetryWait: retryWait,
		Dump:      dump,
	})
	if err != nil {
		serviceutil.Fatal("failed to create http client", err)
	}
	return client
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--archive] [--output <path/to/snapshot.csv>] [--db <path/to/snapshots.db>]",
	Short: "Collects every listed facility and writes the snapshot.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		snapshot := facility.SnapshotActual
		if scrapeArchive {
			snapshot = facility.SnapshotArchive
		}
		output := scrapeOutput
		if output == "" {
			output = cfg.SnapshotPath(snapshot)
		}

		s := scraper.New(newClient(cfg), scraper.DefaultSchema, scraper.Options{
			SearchUrl:        cfg.SearchUrl,
			DetailUrl:        cfg.DetailUrl,
			Snapshot:         snapshot,
			RefetchFirstPage: cfg.RefetchFirstPage,
		})

		t1 := time.Now()
		ds, err := s.Run(cmd.Context())
		if err != nil {
			serviceutil.Fatal("scrape failed, the previous snapshot was kept", err)
		}
		slog.Info("scraping time", "seconds", time.Since(t1).Seconds())

		err = dataset.WriteFile(output, ds)
		if err != nil {
			serviceutil.Fatal("failed to write snapshot", err)
		}
		slog.Info("wrote snapshot", "snapshot", snapshot, "path", output, "records", len(ds))

		if scrapeDb == "" {
			return
		}
		store, err := dataset.OpenStore(scrapeDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer store.Close()

		err = store.Replace(cmd.Context(), snapshot, ds)
		if err != nil {
			serviceutil.Fatal("failed to store snapshot", err)
		}
		slog.Info("stored snapshot", "snapshot", snapshot, "db", scrapeDb)
	},
}
