// Package aggregate derives the dashboard's tables from a dataset. Every
// function is pure: it only reads the dataset it is given.
//
// Years without any matching record are left out of grouped results rather
// than reported with a zero count.
package aggregate

import (
	"math"
	"sort"

	"foodpillory/internal/facility"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type YearCount struct {
	Year  int
	Count int
}

type CategoryCount struct {
	Category string
	Count    int
}

type OffenseFrequency struct {
	Offense string
	// share of records citing the offense, between 0 and 1
	Frequency float64
}

// Percent is the frequency in percent rounded to one decimal place.
func (f OffenseFrequency) Percent() float64 {
	return math.Round(f.Frequency*1000) / 10
}

type TrendPoint struct {
	Year      int
	Offense   string
	Frequency float64
}

func countByYear(ds facility.Dataset, keep func(facility.Record) bool) []YearCount {
	counts := map[int]int{}
	for _, r := range ds {
		if keep(r) {
			counts[r.DateClosed.Year]++
		}
	}

	out := make([]YearCount, 0, len(counts))
	for year, count := range counts {
		out = append(out, YearCount{Year: year, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Year < out[j].Year
	})
	return out
}

// ClosuresByYear counts records by the year of their closure date.
func ClosuresByYear(ds facility.Dataset) []YearCount {
	return countByYear(ds, func(facility.Record) bool { return true })
}

// StillClosedByYear counts records whose ban has not been lifted by the
// year of their closure date.
func StillClosedByYear(ds facility.Dataset) []YearCount {
	return StillClosedByYearAs(ds, facility.StillClosedStatus)
}

// StillClosedByYearAs is StillClosedByYear for sites that label a ban in
// force with status.
func StillClosedByYearAs(ds facility.Dataset, status string) []YearCount {
	return countByYear(ds, func(r facility.Record) bool {
		return r.StillClosedAs(status)
	})
}

// CategoryCounts counts records per category, most frequent first. Equal
// counts keep the order in which the categories first appear.
func CategoryCounts(ds facility.Dataset) []CategoryCount {
	index := map[string]int{}
	var out []CategoryCount
	for _, r := range ds {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, CategoryCount{Category: r.Category})
		}
		out[i].Count++
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// offenseShares returns the share of records citing each offense, keyed by
// offense, plus the offenses in first-seen order. A record citing the same
// offense twice counts once.
func offenseShares(ds facility.Dataset) (map[string]float64, []string) {
	counts := map[string]int{}
	var order []string
	for _, r := range ds {
		cited := map[string]bool{}
		for _, offense := range r.OffensesFound {
			if cited[offense] {
				continue
			}
			cited[offense] = true
			if _, ok := counts[offense]; !ok {
				order = append(order, offense)
			}
			counts[offense]++
		}
	}

	shares := make(map[string]float64, len(counts))
	for offense, count := range counts {
		shares[offense] = float64(count) / float64(len(ds))
	}
	return shares, order
}

// OffenseFrequencies returns, for every offense cited in ds, the share of
// records citing it. Records without offenses still count towards the
// total. The result is sorted by frequency, most frequent first, ties keep
// first-seen order.
func OffenseFrequencies(ds facility.Dataset) []OffenseFrequency {
	shares, order := offenseShares(ds)

	out := make([]OffenseFrequency, len(order))
	for i, offense := range order {
		out[i] = OffenseFrequency{Offense: offense, Frequency: shares[offense]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Frequency > out[j].Frequency
	})
	return out
}

// OffenseFrequenciesIn is OffenseFrequencies over the records closed in
// `year`.
func OffenseFrequenciesIn(ds facility.Dataset, year int) []OffenseFrequency {
	return OffenseFrequencies(ClosedIn(ds, year))
}

// Top returns the first k frequencies, k is clamped to [0, len(freqs)].
func Top(freqs []OffenseFrequency, k int) []OffenseFrequency {
	if k < 0 {
		k = 0
	}
	if k > len(freqs) {
		k = len(freqs)
	}
	return freqs[:k]
}

// OffenseTrend returns the yearly frequency of each of `offenses` for the
// years `from` to `to` inclusive, one point per year and offense. Years
// without records are skipped, an offense never cited in a year gets 0.
func OffenseTrend(ds facility.Dataset, offenses []string, from, to int) []TrendPoint {
	byYear := map[int]facility.Dataset{}
	for _, r := range ds {
		year := r.DateClosed.Year
		if year >= from && year <= to {
			byYear[year] = append(byYear[year], r)
		}
	}

	var out []TrendPoint
	for year := from; year <= to; year++ {
		records, ok := byYear[year]
		if !ok {
			continue
		}
		shares, _ := offenseShares(records)
		for _, offense := range offenses {
			out = append(out, TrendPoint{
				Year:      year,
				Offense:   offense,
				Frequency: shares[offense],
			})
		}
	}
	return out
}

// ClosedIn returns the records closed in `year`, in dataset order.
func ClosedIn(ds facility.Dataset, year int) facility.Dataset {
	var out facility.Dataset
	for _, r := range ds {
		if r.DateClosed.Year == year {
			out = append(out, r)
		}
	}
	return out
}

// ClosedBeforePublished returns the records closed before the date they
// were published, in dataset order.
func ClosedBeforePublished(ds facility.Dataset) facility.Dataset {
	var out facility.Dataset
	for _, r := range ds {
		if r.ClosedBeforePublished() {
			out = append(out, r)
		}
	}
	return out
}

// YearRange returns the first and last closure year in ds.
func YearRange(ds facility.Dataset) (first, last int, ok bool) {
	for i, r := range ds {
		year := r.DateClosed.Year
		if i == 0 || year < first {
			first = year
		}
		if i == 0 || year > last {
			last = year
		}
	}
	return first, last, len(ds) > 0
}

var czech = message.NewPrinter(language.Czech)

// FormatPercent renders a percentage the way Czech readers expect it,
// e.g. "12,3 %".
func FormatPercent(percent float64) string {
	return czech.Sprintf("%.1f %%", percent)
}
