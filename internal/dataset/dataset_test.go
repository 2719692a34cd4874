package dataset

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"foodpillory/internal/facility"
	"foodpillory/lib/testutil"

	"github.com/golang-sql/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) civil.Date {
	return civil.Date{Year: year, Month: month, Day: day}
}

func sampleDataset() facility.Dataset {
	return facility.Dataset{
		{
			Id:              100,
			ReferenceNumber: "SZPI/AB123/2021",
			TaxId:           sql.NullString{String: "12345678", Valid: true},
			Name:            "Bistro U Lípy",
			Address:         "Hlavní 1, Praha",
			Category:        "Restaurace",
			DatePublished:   date(2021, time.March, 3),
			DateClosed:      date(2021, time.March, 1),
			ClosureStatus:   facility.StillClosedStatus,
			OffensesFound:   []string{"Nevyhovující hygiena", "Výskyt škůdců"},
			FetchedOn:       date(2024, time.May, 10),
		},
		{
			Id:              101,
			ReferenceNumber: "SZPI/CD456/2021",
			Name:            "Večerka, \"U nádraží\"",
			Address:         "Nádražní 5\nBrno",
			Category:        "Obchod",
			DatePublished:   date(2021, time.March, 20),
			DateClosed:      date(2021, time.March, 18),
			DateBanLifted:   sql.Null[civil.Date]{V: date(2021, time.March, 22), Valid: true},
			ClosureStatus:   "Uvolněno",
			FetchedOn:       date(2024, time.May, 10),
		},
	}
}

func TestCsvRoundTrip(t *testing.T) {
	ds := sampleDataset()

	buf := bytes.NewBuffer(nil)
	err := Write(buf, ds)
	require.NoError(t, err)

	firstLine, _, _ := strings.Cut(buf.String(), "\n")
	require.Equal(t, strings.Join(Columns, ","), firstLine)

	read, err := Read(buf)
	require.NoError(t, err)

	diff := cmp.Diff(ds, read)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestCsvOffenseSeparator(t *testing.T) {
	ds := sampleDataset()[:1]
	ds[0].OffensesFound = []string{"Nevyhovující hygiena | sklad", "Výskyt škůdců"}

	buf := bytes.NewBuffer(nil)
	require.NoError(t, Write(buf, ds))
	read, err := Read(buf)
	require.NoError(t, err)
	require.Equal(t, []string{"Nevyhovující hygiena / sklad", "Výskyt škůdců"}, read[0].OffensesFound)

	ds[0].OffensesFound = []string{}
	buf.Reset()
	require.NoError(t, Write(buf, ds))
	read, err = Read(buf)
	require.NoError(t, err)
	require.Nil(t, read[0].OffensesFound)
}

func TestCsvEncoding(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	err := Write(buf, sampleDataset()[:1])
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(
		t,
		"100,SZPI/AB123/2021,12345678,Bistro U Lípy,\"Hlavní 1, Praha\",Restaurace,2021-03-03,2021-03-01,,Uzavřeno,Nevyhovující hygiena|Výskyt škůdců,2024-05-10",
		lines[1],
	)
}

func TestReadLegacyHeader(t *testing.T) {
	const legacy = "id,referencni_cislo,ico,nazev,adresa,datum_zverejneni,datum_uzavreni,datum_uvolneni_zakazu,stav_uzavreni,druh,zjistene_skutecnosti,stazeno\n" +
		"7,R-7,,Jídelna,Polní 2,2020-01-05,2020-01-02,2020-02-01,Uvolněno,Jídelna,Nevyhovující hygiena,2023-11-30\n"

	ds, err := Read(strings.NewReader(legacy))
	require.NoError(t, err)
	require.Len(t, ds, 1)

	r := ds[0]
	require.Equal(t, 7, r.Id)
	require.Equal(t, "R-7", r.ReferenceNumber)
	require.False(t, r.TaxId.Valid)
	require.Equal(t, "Polní 2", r.Address)
	require.Equal(t, "Jídelna", r.Category)
	require.Equal(t, date(2020, time.January, 2), r.DateClosed)
	require.True(t, r.DateBanLifted.Valid)
	require.Equal(t, date(2020, time.February, 1), r.DateBanLifted.V)
	require.Equal(t, []string{"Nevyhovující hygiena"}, r.OffensesFound)
	require.Equal(t, date(2023, time.November, 30), r.FetchedOn)
}

func TestReadErrors(t *testing.T) {
	header := strings.Join(Columns, ",") + "\n"

	testCases := []struct {
		name     string
		contents string
		contains string
	}{
		{name: "empty", contents: "", contains: "header"},
		{name: "missing column", contents: "id,name\n1,x\n", contains: "missing column reference_number"},
		{
			name:     "bad id",
			contents: header + "abc,R,,n,a,c,2021-01-01,2021-01-01,,s,,2021-01-01\n",
			contains: "line 2: column id",
		},
		{
			name:     "bad date",
			contents: header + "1,R,,n,a,c,2021-01-01,01. 01. 2021,,s,,2021-01-01\n",
			contains: "line 2: column date_closed",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(test.contents))
			require.Error(t, err)
			require.Contains(t, err.Error(), test.contains)
		})
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data", "actual.csv")

	err := WriteFile(path, sampleDataset())
	require.NoError(t, err)

	err = WriteFile(path, sampleDataset()[:1])
	require.NoError(t, err)

	ds, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, ds, 1)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestStore(t *testing.T) {
	ctx := testutil.Context(t, 5*time.Second)

	store, err := NewStore(testutil.OpenSqlite(t, Schema))
	require.NoError(t, err)

	empty, err := store.Load(ctx, facility.SnapshotActual)
	require.NoError(t, err)
	require.Empty(t, empty)

	ds := sampleDataset()
	err = store.Replace(ctx, facility.SnapshotActual, ds)
	require.NoError(t, err)
	err = store.Replace(ctx, facility.SnapshotArchive, ds[1:])
	require.NoError(t, err)

	actual, err := store.Load(ctx, facility.SnapshotActual)
	require.NoError(t, err)
	diff := cmp.Diff(ds, actual)
	if diff != "" {
		t.Fatal(diff)
	}

	// replacing a snapshot leaves the other one alone
	err = store.Replace(ctx, facility.SnapshotActual, ds[:1])
	require.NoError(t, err)

	actual, err = store.Load(ctx, facility.SnapshotActual)
	require.NoError(t, err)
	require.Len(t, actual, 1)

	archive, err := store.Load(ctx, facility.SnapshotArchive)
	require.NoError(t, err)
	require.Len(t, archive, 1)
	require.Equal(t, 101, archive[0].Id)
}

func TestStoreRejectsDuplicateIds(t *testing.T) {
	ctx := testutil.Context(t, 5*time.Second)

	store, err := NewStore(testutil.OpenSqlite(t, ""))
	require.NoError(t, err)

	ds := sampleDataset()
	err = store.Replace(ctx, facility.SnapshotActual, ds)
	require.NoError(t, err)

	err = store.Replace(ctx, facility.SnapshotActual, append(ds, ds[0]))
	require.ErrorContains(t, err, "more than once")

	// a rejected snapshot keeps the previous rows
	stored, err := store.Load(ctx, facility.SnapshotActual)
	require.NoError(t, err)
	require.Len(t, stored, 2)
}

type countingSource struct {
	name  string
	ds    facility.Dataset
	calls int
}

func (s *countingSource) String() string {
	return s.name
}

func (s *countingSource) Load(ctx context.Context) (facility.Dataset, error) {
	s.calls++
	return s.ds, nil
}

func TestLoader(t *testing.T) {
	ctx := testutil.Context(t, 5*time.Second)

	ds := sampleDataset()
	actual := &countingSource{name: "actual", ds: ds[:1]}
	archive := &countingSource{name: "archive", ds: ds[1:]}
	loader := NewLoader(actual, archive)

	combined, err := loader.Dataset(ctx)
	require.NoError(t, err)
	require.Len(t, combined, 2)
	require.Equal(t, 100, combined[0].Id)
	require.Equal(t, 101, combined[1].Id)

	_, err = loader.Dataset(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, actual.calls)
	require.Equal(t, 1, archive.calls)

	loader.Invalidate()
	_, err = loader.Dataset(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, actual.calls)
}

func TestExpiringLoader(t *testing.T) {
	ctx := testutil.Context(t, 5*time.Second)

	source := &countingSource{name: "actual", ds: sampleDataset()}
	loader := NewExpiringLoader(10*time.Millisecond, source)

	_, err := loader.Dataset(ctx)
	require.NoError(t, err)
	_, err = loader.Dataset(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, source.calls)

	time.Sleep(50 * time.Millisecond)
	_, err = loader.Dataset(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, source.calls)
}

func TestSourceNames(t *testing.T) {
	require.Equal(t, "file:data/actual.csv", FileSource("data/actual.csv").String())
	require.Equal(t, "sqlite:archive", StoreSource{Snapshot: facility.SnapshotArchive}.String())
}

func TestLoaderSources(t *testing.T) {
	ctx := testutil.Context(t, 5*time.Second)

	path := filepath.Join(t.TempDir(), "actual.csv")
	err := WriteFile(path, sampleDataset()[:1])
	require.NoError(t, err)

	store, err := NewStore(testutil.OpenSqlite(t, ""))
	require.NoError(t, err)
	err = store.Replace(ctx, facility.SnapshotArchive, sampleDataset()[1:])
	require.NoError(t, err)

	loader := NewLoader(
		FileSource(path),
		StoreSource{Store: store, Snapshot: facility.SnapshotArchive},
	)
	combined, err := loader.Dataset(ctx)
	require.NoError(t, err)
	require.Len(t, combined, 2)

	_, err = NewLoader(FileSource(filepath.Join(t.TempDir(), "missing.csv"))).Dataset(ctx)
	require.ErrorIs(t, err, os.ErrNotExist)
}
