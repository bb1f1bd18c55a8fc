package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Vancouver")
	if err != nil {
		panic(err)
	}
}

// StampLayout is the timestamp format used in reports and
// notification bodies.
const StampLayout = "2006-01-02 15:04:05"

// force timezone to BC because the poller often runs on servers in
// other regions, and availability windows are published in park-local
// dates
func Now() time.Time {
	return time.Now().In(Location)
}

// Stamp formats t for report lines.
func Stamp(t time.Time) string {
	return t.In(Location).Format(StampLayout)
}
