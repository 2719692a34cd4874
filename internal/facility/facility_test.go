package facility

import (
	"database/sql"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestStillClosed(t *testing.T) {
	cases := []struct {
		name   string
		record Record
		expect bool
	}{
		{
			name:   "closed",
			record: Record{ClosureStatus: StillClosedStatus},
			expect: true,
		},
		{
			name: "reopened",
			record: Record{
				ClosureStatus: StillClosedStatus,
				DateBanLifted: sql.Null[civil.Date]{V: date(2021, 2, 1), Valid: true},
			},
			expect: false,
		},
		{
			name:   "other status",
			record: Record{ClosureStatus: "Uvolněno"},
			expect: false,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expect, test.record.StillClosed())
		})
	}
}

func TestClosedBeforePublished(t *testing.T) {
	r := Record{DatePublished: date(2021, 1, 10), DateClosed: date(2021, 1, 5)}
	require.True(t, r.ClosedBeforePublished())
	r.DateClosed = date(2021, 1, 10)
	require.False(t, r.ClosedBeforePublished())
}

func TestOffenses(t *testing.T) {
	offenses := []string{"Výskyt škůdců", "Nevyhovující hygienický stav"}
	require.Equal(t, "Výskyt škůdců|Nevyhovující hygienický stav", JoinOffenses(offenses))
	require.Equal(t, offenses, SplitOffenses(JoinOffenses(offenses)))
	require.Empty(t, SplitOffenses(""))

	require.Equal(t, "a/b|c", JoinOffenses([]string{"a|b", "c"}))
	require.Equal(t, []string{"a/b", "c"}, SplitOffenses(JoinOffenses([]string{"a|b", "c"})))
	require.Equal(t, "", JoinOffenses([]string{}))
	require.Nil(t, SplitOffenses(JoinOffenses([]string{})))
}

func TestParseSnapshot(t *testing.T) {
	s, err := ParseSnapshot("archive")
	require.NoError(t, err)
	require.Equal(t, SnapshotArchive, s)

	_, err = ParseSnapshot("history")
	require.Error(t, err)
}

func TestUnion(t *testing.T) {
	actual := Dataset{{Id: 1}, {Id: 2}}
	archive := Dataset{{Id: 2}, {Id: 3}, {Id: 2}}

	all := Union(actual, archive)
	require.Len(t, all, 5)
	require.Equal(t, []int{2}, all.DuplicateIds())
	require.Empty(t, actual.DuplicateIds())
}
