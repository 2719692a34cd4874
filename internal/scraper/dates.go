package scraper

import (
	"database/sql"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-sql/civil"
)

// the site writes dates as "05. 03. 2021", spacing is not always consistent
var sourceDate = regexp.MustCompile(`^(\d{1,2})\.\s*(\d{1,2})\.\s*(\d{4})$`)

// ParseSourceDate parses a required date field.
func ParseSourceDate(field, raw string) (civil.Date, error) {
	m := sourceDate.FindStringSubmatch(raw)
	if m == nil {
		return civil.Date{}, &DateFormatError{Field: field, Value: raw}
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	date := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !date.IsValid() {
		return civil.Date{}, &DateFormatError{Field: field, Value: raw}
	}
	return date, nil
}

// parseOptionalDate treats a missing or malformed date as no value.
func parseOptionalDate(field string, raw sql.NullString) sql.Null[civil.Date] {
	if !raw.Valid {
		return sql.Null[civil.Date]{}
	}
	date, err := ParseSourceDate(field, raw.String)
	if err != nil {
		return sql.Null[civil.Date]{}
	}
	return sql.Null[civil.Date]{V: date, Valid: true}
}
