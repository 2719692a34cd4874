package dataset

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"foodpillory/internal/facility"

	"github.com/golang-sql/civil"
)

// Columns is the header of a persisted snapshot, in order.
var Columns = []string{
	"id",
	"reference_number",
	"tax_id",
	"name",
	"address",
	"category",
	"date_published",
	"date_closed",
	"date_ban_lifted",
	"closure_status",
	"offenses_found",
	"fetched_on",
}

// files written by the first version of the scraper use Czech headers
var legacyColumns = map[string]string{
	"referencni_cislo":      "reference_number",
	"ico":                   "tax_id",
	"nazev":                 "name",
	"adresa":                "address",
	"druh":                  "category",
	"datum_zverejneni":      "date_published",
	"datum_uzavreni":        "date_closed",
	"datum_uvolneni_zakazu": "date_ban_lifted",
	"stav_uzavreni":         "closure_status",
	"zjistene_skutecnosti":  "offenses_found",
	"stazeno":               "fetched_on",
}

func formatOptionalDate(d sql.Null[civil.Date]) string {
	if !d.Valid {
		return ""
	}
	return d.V.String()
}

func formatOptionalString(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return s.String
}

func encodeRecord(r facility.Record) []string {
	return []string{
		strconv.Itoa(r.Id),
		r.ReferenceNumber,
		formatOptionalString(r.TaxId),
		r.Name,
		r.Address,
		r.Category,
		r.DatePublished.String(),
		r.DateClosed.String(),
		formatOptionalDate(r.DateBanLifted),
		r.ClosureStatus,
		facility.JoinOffenses(r.OffensesFound),
		r.FetchedOn.String(),
	}
}

// Write writes ds with a header row. Dates are ISO 8601, absent optional
// values are empty cells.
func Write(w io.Writer, ds facility.Dataset) error {
	cw := csv.NewWriter(w)
	err := cw.Write(Columns)
	if err != nil {
		return err
	}
	for _, r := range ds {
		err = cw.Write(encodeRecord(r))
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile replaces the file at path with ds. The previous file stays
// intact if writing fails.
func WriteFile(path string, ds facility.Dataset) error {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	err = Write(tmp, ds)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

type decoder struct {
	index map[string]int
	row   []string
	err   error
}

func (d *decoder) get(column string) string {
	return d.row[d.index[column]]
}

func (d *decoder) fail(column string, err error) {
	if d.err == nil {
		d.err = fmt.Errorf("column %s: %w", column, err)
	}
}

func (d *decoder) date(column string) civil.Date {
	date, err := civil.ParseDate(d.get(column))
	if err != nil {
		d.fail(column, err)
	}
	return date
}

func (d *decoder) optionalDate(column string) sql.Null[civil.Date] {
	raw := d.get(column)
	if raw == "" {
		return sql.Null[civil.Date]{}
	}
	date, err := civil.ParseDate(raw)
	if err != nil {
		d.fail(column, err)
		return sql.Null[civil.Date]{}
	}
	return sql.Null[civil.Date]{V: date, Valid: true}
}

func (d *decoder) record() (facility.Record, error) {
	id, err := strconv.Atoi(d.get("id"))
	if err != nil {
		d.fail("id", err)
	}
	taxId := d.get("tax_id")

	r := facility.Record{
		Id:              id,
		ReferenceNumber: d.get("reference_number"),
		TaxId:           sql.NullString{String: taxId, Valid: taxId != ""},
		Name:            d.get("name"),
		Address:         d.get("address"),
		Category:        d.get("category"),
		DatePublished:   d.date("date_published"),
		DateClosed:      d.date("date_closed"),
		DateBanLifted:   d.optionalDate("date_ban_lifted"),
		ClosureStatus:   d.get("closure_status"),
		OffensesFound:   facility.SplitOffenses(d.get("offenses_found")),
		FetchedOn:       d.date("fetched_on"),
	}
	return r, d.err
}

func headerIndex(header []string) (map[string]int, error) {
	index := map[string]int{}
	for i, name := range header {
		if canonical, ok := legacyColumns[name]; ok {
			name = canonical
		}
		index[name] = i
	}
	for _, column := range Columns {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("missing column %s", column)
		}
	}
	return index, nil
}

// Read parses a snapshot written by Write. Columns are matched by header
// name, so column order does not matter.
func Read(r io.Reader) (facility.Dataset, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file, expected a header")
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		// excel likes to prepend a byte order mark
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	index, err := headerIndex(header)
	if err != nil {
		return nil, err
	}
	cr.FieldsPerRecord = len(header)

	var ds facility.Dataset
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return ds, nil
		}
		if err != nil {
			return nil, err
		}

		d := decoder{index: index, row: row}
		record, err := d.record()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ds = append(ds, record)
	}
}

func ReadFile(path string) (facility.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}
