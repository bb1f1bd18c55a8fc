package watcher

import (
	"fmt"
	"io"

	"parkwatch/lib/booking"
	"parkwatch/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Reporter writes the per-cycle availability line. Verbose mode adds a
// table of every normalized record, not just the filtered ones.
type Reporter struct {
	out     io.Writer
	verbose bool
}

func NewReporter(out io.Writer, verbose bool) *Reporter {
	return &Reporter{out: out, verbose: verbose}
}

// Report prints the cycle outcome. records is the full normalized set
// behind the result; it is only rendered in verbose mode.
func (r *Reporter) Report(result booking.PollResult, records []booking.SiteRecord) {
	stamp := timezone.Stamp(result.Time)
	if len(result.Available) == 0 {
		fmt.Fprintf(r.out, "%s - No Availability\n", stamp)
	} else {
		fmt.Fprintf(r.out, "%s - Available sites: %s\n", stamp, result.Summary())
	}

	if r.verbose && len(records) > 0 {
		r.printRecords(records)
	}
}

func (r *Reporter) printRecords(records []booking.SiteRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.AppendHeader(table.Row{"ID", "Site", "Status"})
	for _, rec := range records {
		t.AppendRow(table.Row{rec.ID, rec.DisplayName, rec.Status.String()})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
