package commands

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"foodpillory/internal/dataset"
	"foodpillory/internal/facility"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/require"
)

func closedIn(id, year int) facility.Record {
	day := civil.Date{Year: year, Month: time.April, Day: 2}
	return facility.Record{
		Id:              id,
		ReferenceNumber: "R",
		Name:            "Provozovna",
		Address:         "Adresa",
		Category:        "Restaurace",
		DatePublished:   day,
		DateClosed:      day,
		ClosureStatus:   facility.StillClosedStatus,
		OffensesFound:   []string{"Výskyt škůdců"},
		FetchedOn:       day,
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	actual := filepath.Join(dir, "actual.csv")
	archive := filepath.Join(dir, "archive.csv")
	output := filepath.Join(dir, "out", "2021.csv")

	require.NoError(t, dataset.WriteFile(actual, facility.Dataset{closedIn(1, 2021), closedIn(2, 2022)}))
	require.NoError(t, dataset.WriteFile(archive, facility.Dataset{closedIn(1, 2019), closedIn(3, 2021)}))

	rootCmd.SetArgs([]string{
		"export",
		"--config", filepath.Join(dir, "missing.json5"),
		"--actual", actual,
		"--archive", archive,
		"--year", "2021",
		"--output", output,
	})
	err := ExecuteContext(context.Background())
	require.NoError(t, err)

	exported, err := dataset.ReadFile(output)
	require.NoError(t, err)
	require.Len(t, exported, 2)
	require.Equal(t, 1, exported[0].Id)
	require.Equal(t, 3, exported[1].Id)
}
