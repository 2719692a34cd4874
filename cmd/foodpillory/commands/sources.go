package commands

import (
	"foodpillory/internal/config"
	"foodpillory/internal/dataset"
	"foodpillory/internal/facility"
	"foodpillory/lib/serviceutil"

	"github.com/spf13/cobra"
)

// sourceFlags selects where the actual and archive snapshots are read from.
type sourceFlags struct {
	actual  string
	archive string
	db      string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.actual, "actual", "", "The current snapshot, defaults to <data_dir>/actual.csv.")
	cmd.Flags().StringVar(&f.archive, "archive", "", "The archive snapshot, defaults to <data_dir>/archive.csv.")
	cmd.Flags().StringVar(&f.db, "db", "", "Read both snapshots from this sqlite database instead of csv files.")
}

// loader returns the loader and a function releasing what it opened.
func (f *sourceFlags) loader(cfg config.Config) (*dataset.Loader, func()) {
	if f.db != "" {
		store, err := dataset.OpenStore(f.db)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		loader := dataset.NewLoader(
			dataset.StoreSource{Store: store, Snapshot: facility.SnapshotActual},
			dataset.StoreSource{Store: store, Snapshot: facility.SnapshotArchive},
		)
		return loader, func() { store.Close() }
	}

	actual := f.actual
	if actual == "" {
		actual = cfg.SnapshotPath(facility.SnapshotActual)
	}
	archive := f.archive
	if archive == "" {
		archive = cfg.SnapshotPath(facility.SnapshotArchive)
	}
	loader := dataset.NewLoader(dataset.FileSource(actual), dataset.FileSource(archive))
	return loader, func() {}
}
