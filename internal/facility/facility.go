// Package facility holds the normalized record of one closed food-service
// facility as published by the food inspection authority.
package facility

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/golang-sql/civil"
)

// StillClosedStatus is the closure status label the site shows while a ban
// is in force. There is no published vocabulary for the status column, a
// renamed label silently empties the still-closed aggregation.
const StillClosedStatus = "Uzavřeno"

// OffenseSeparator joins the offenses of one record in memory and on disk.
// A separator inside an offense is replaced by OffenseSeparatorReplacement
// so it never splits the offense in two. An empty list and no list are the
// same on disk, both read back as nil.
const OffenseSeparator = "|"

const OffenseSeparatorReplacement = "/"

// CleanOffense makes an offense description safe to join.
func CleanOffense(offense string) string {
	return strings.ReplaceAll(offense, OffenseSeparator, OffenseSeparatorReplacement)
}

type Snapshot string

const (
	SnapshotActual  Snapshot = "actual"
	SnapshotArchive Snapshot = "archive"
)

func ParseSnapshot(s string) (Snapshot, error) {
	switch Snapshot(s) {
	case SnapshotActual, SnapshotArchive:
		return Snapshot(s), nil
	}
	return "", fmt.Errorf("unknown snapshot %q, expected %q or %q", s, SnapshotActual, SnapshotArchive)
}

type Record struct {
	Id              int
	ReferenceNumber string
	TaxId           sql.NullString
	Name            string
	Address         string
	Category        string
	DatePublished   civil.Date
	DateClosed      civil.Date
	DateBanLifted   sql.Null[civil.Date]
	ClosureStatus   string
	OffensesFound   []string
	FetchedOn       civil.Date
}

// StillClosed reports whether the ban on the facility has not been lifted.
func (r Record) StillClosed() bool {
	return r.StillClosedAs(StillClosedStatus)
}

// StillClosedAs is StillClosed with a different closure status label.
func (r Record) StillClosedAs(status string) bool {
	return !r.DateBanLifted.Valid && r.ClosureStatus == status
}

// ClosedBeforePublished flags records whose closure date precedes their
// publication date. The source normally publishes a facility no later than
// its closure date, such records are kept as is and reported.
func (r Record) ClosedBeforePublished() bool {
	return r.DateClosed.Before(r.DatePublished)
}

func JoinOffenses(offenses []string) string {
	cleaned := make([]string, len(offenses))
	for i, offense := range offenses {
		cleaned[i] = CleanOffense(offense)
	}
	return strings.Join(cleaned, OffenseSeparator)
}

// SplitOffenses is the inverse of JoinOffenses, an empty string yields no
// offenses.
func SplitOffenses(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, OffenseSeparator)
}

// Dataset is an ordered list of records, ids are unique within one snapshot.
type Dataset []Record

// Union concatenates datasets in order without deduplicating ids, actual
// and archive snapshots may share ids.
func Union(datasets ...Dataset) Dataset {
	size := 0
	for _, ds := range datasets {
		size += len(ds)
	}
	out := make(Dataset, 0, size)
	for _, ds := range datasets {
		out = append(out, ds...)
	}
	return out
}

// DuplicateIds returns ids occurring more than once, in first-seen order.
func (ds Dataset) DuplicateIds() []int {
	seen := make(map[int]int, len(ds))
	var duplicates []int
	for _, r := range ds {
		seen[r.Id]++
		if seen[r.Id] == 2 {
			duplicates = append(duplicates, r.Id)
		}
	}
	return duplicates
}
