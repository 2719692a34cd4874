// Package report lays out the dashboard views of a dataset as terminal
// tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"foodpillory/internal/aggregate"
	"foodpillory/internal/facility"

	"github.com/jedib0t/go-pretty/v6/table"
)

// DefaultTop is the number of offenses shown when none is requested.
const DefaultTop = 5

// trendSize is how many offenses the trend follows.
const trendSize = 3

type Options struct {
	// 0 selects the latest closure year in the dataset
	Year int
	// clamped to [1, number of offenses in Year], 0 selects DefaultTop
	Top int
	// the most frequent offenses of the whole dataset are used when empty
	TrendOffenses     []string
	StillClosedStatus string
}

type YearRow struct {
	Year        int
	Closed      int
	StillClosed int
}

type Report struct {
	Year       int
	FirstYear  int
	LastYear   int
	Years      []YearRow
	Categories []aggregate.CategoryCount
	// records closed in Year
	Total         int
	Offenses      []aggregate.OffenseFrequency
	TrendOffenses []string
	// ids of records in the whole dataset closed before they were published
	ClosedBeforePublished []int
	Trend                 []aggregate.TrendPoint
}

// OutOfRangeError is returned when the requested year lies outside the
// closure years of the dataset.
type OutOfRangeError struct {
	Year      int
	FirstYear int
	LastYear  int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("year %d is outside of the dataset's range %d-%d", e.Year, e.FirstYear, e.LastYear)
}

func mergeYears(closed, stillClosed []aggregate.YearCount) []YearRow {
	still := map[int]int{}
	for _, c := range stillClosed {
		still[c.Year] = c.Count
	}
	rows := make([]YearRow, len(closed))
	for i, c := range closed {
		rows[i] = YearRow{Year: c.Year, Closed: c.Count, StillClosed: still[c.Year]}
	}
	return rows
}

func clampTop(top, available int) int {
	if top == 0 {
		top = DefaultTop
	}
	if top > available {
		top = available
	}
	if top < 1 {
		top = 1
	}
	return top
}

func Build(ds facility.Dataset, opts Options) (Report, error) {
	first, last, ok := aggregate.YearRange(ds)
	if !ok {
		return Report{}, fmt.Errorf("dataset is empty")
	}

	year := opts.Year
	if year == 0 {
		year = last
	}
	if year < first || year > last {
		return Report{}, &OutOfRangeError{Year: year, FirstYear: first, LastYear: last}
	}

	status := opts.StillClosedStatus
	if status == "" {
		status = facility.StillClosedStatus
	}

	trendOffenses := opts.TrendOffenses
	if len(trendOffenses) == 0 {
		for _, f := range aggregate.Top(aggregate.OffenseFrequencies(ds), trendSize) {
			trendOffenses = append(trendOffenses, f.Offense)
		}
	}

	inYear := aggregate.ClosedIn(ds, year)
	offenses := aggregate.OffenseFrequencies(inYear)

	var closedEarly []int
	for _, r := range aggregate.ClosedBeforePublished(ds) {
		closedEarly = append(closedEarly, r.Id)
	}

	return Report{
		Year:      year,
		FirstYear: first,
		LastYear:  last,
		Years: mergeYears(
			aggregate.ClosuresByYear(ds),
			aggregate.StillClosedByYearAs(ds, status),
		),
		Categories:    aggregate.CategoryCounts(inYear),
		Total:         len(inYear),
		Offenses:      aggregate.Top(offenses, clampTop(opts.Top, len(offenses))),
		TrendOffenses: trendOffenses,
		Trend:         aggregate.OffenseTrend(ds, trendOffenses, first, last),

		ClosedBeforePublished: closedEarly,
	}, nil
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// Render prints every view of r to w.
func Render(w io.Writer, r Report) {
	years := newTable(w, "Closures by year")
	years.AppendHeader(table.Row{"Year", "Closed", "Still closed"})
	for _, row := range r.Years {
		years.AppendRow(table.Row{row.Year, row.Closed, row.StillClosed})
	}
	years.Render()

	categories := newTable(w, fmt.Sprintf("Categories closed in %d", r.Year))
	categories.AppendHeader(table.Row{"Category", "Count"})
	for _, c := range r.Categories {
		categories.AppendRow(table.Row{c.Category, c.Count})
	}
	categories.AppendFooter(table.Row{"Total", r.Total})
	categories.Render()

	offenses := newTable(w, fmt.Sprintf("Offenses found in %d", r.Year))
	offenses.AppendHeader(table.Row{"#", "Offense", "Frequency"})
	for i, f := range r.Offenses {
		offenses.AppendRow(table.Row{i + 1, f.Offense, aggregate.FormatPercent(f.Percent())})
	}
	offenses.Render()

	if len(r.TrendOffenses) > 0 {
		renderTrend(w, r)
	}

	if len(r.ClosedBeforePublished) > 0 {
		fmt.Fprintf(
			w,
			"%d records were closed before they were published: %s\n",
			len(r.ClosedBeforePublished),
			joinIds(r.ClosedBeforePublished),
		)
	}
}

func joinIds(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}

func renderTrend(w io.Writer, r Report) {
	trend := newTable(w, fmt.Sprintf("Offense trend %d-%d", r.FirstYear, r.LastYear))
	header := table.Row{"Year"}
	for _, offense := range r.TrendOffenses {
		header = append(header, offense)
	}
	trend.AppendHeader(header)
	for i := 0; i < len(r.Trend); i += len(r.TrendOffenses) {
		row := table.Row{strconv.Itoa(r.Trend[i].Year)}
		for _, point := range r.Trend[i : i+len(r.TrendOffenses)] {
			row = append(row, aggregate.FormatPercent(aggregate.OffenseFrequency{Frequency: point.Frequency}.Percent()))
		}
		trend.AppendRow(row)
	}
	trend.Render()
}
