package timezone

import (
	"time"
	_ "time/tzdata"

	"github.com/golang-sql/civil"
)

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Prague")
	if err != nil {
		panic(err)
	}
}

// the inspection authority publishes dates in Czech local time, a scrape
// started shortly after midnight UTC must still stamp the Prague date.
func Now() time.Time {
	return time.Now().In(Location)
}

func Today() civil.Date {
	return civil.DateOf(Now())
}
