package scraper

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/require"
)

func TestParseSourceDate(t *testing.T) {
	cases := []struct {
		raw    string
		expect civil.Date
	}{
		{raw: "01. 01. 2021", expect: civil.Date{Year: 2021, Month: time.January, Day: 1}},
		{raw: "5. 3. 2021", expect: civil.Date{Year: 2021, Month: time.March, Day: 5}},
		{raw: "29.02.2020", expect: civil.Date{Year: 2020, Month: time.February, Day: 29}},
		{raw: "31.  12. 1999", expect: civil.Date{Year: 1999, Month: time.December, Day: 31}},
	}

	for _, test := range cases {
		date, err := ParseSourceDate("date_closed", test.raw)
		require.NoError(t, err, test.raw)
		require.Equal(t, test.expect, date)
	}
}

func TestParseSourceDateInvalid(t *testing.T) {
	for _, raw := range []string{"", "2021-01-01", "01/01/2021", "29. 02. 2021", "32. 01. 2021", "01. 13. 2021", "1. 1. 21"} {
		_, err := ParseSourceDate("date_closed", raw)
		var dateErr *DateFormatError
		require.True(t, errors.As(err, &dateErr), raw)
		require.Equal(t, "date_closed", dateErr.Field)
		require.Equal(t, raw, dateErr.Value)
	}
}

func TestParseOptionalDate(t *testing.T) {
	require.False(t, parseOptionalDate("date_ban_lifted", sql.NullString{}).Valid)
	require.False(t, parseOptionalDate("date_ban_lifted", sql.NullString{String: "zatím ne", Valid: true}).Valid)

	date := parseOptionalDate("date_ban_lifted", sql.NullString{String: "22. 03. 2021", Valid: true})
	require.True(t, date.Valid)
	require.Equal(t, civil.Date{Year: 2021, Month: time.March, Day: 22}, date.V)
}
