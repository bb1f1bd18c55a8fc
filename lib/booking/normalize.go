package booking

import (
	"fmt"
	"sort"

	"parkwatch/lib/extract"
	"parkwatch/lib/naturalsort"
)

// Normalize merges a raw snapshot into the canonical record set, in
// natural-sort order over display name. Records are keyed by ID, so
// duplicate ids collapse to one record.
//
// For API snapshots every status id must resolve to a name; a missing
// name is a malformed-class error because patching over it would
// silently misreport sites. Status code 0 means available, anything
// else unavailable.
//
// For page snapshots each observed name becomes an available record
// with ID equal to the name; the page exposes no separate id.
func Normalize(snap extract.Snapshot) ([]SiteRecord, error) {
	byID := make(map[string]SiteRecord)

	if snap.FromPage() {
		for _, name := range snap.Available {
			byID[name] = SiteRecord{
				ID:          name,
				DisplayName: name,
				Status:      StatusAvailable,
			}
		}
	} else {
		for id, code := range snap.Statuses {
			name, ok := snap.Names[id]
			if !ok {
				return nil, extract.Malformed(
					"normalize",
					fmt.Errorf("status entry %q has no matching name", id),
				)
			}
			status := StatusUnavailable
			if code == 0 {
				status = StatusAvailable
			}
			byID[id] = SiteRecord{
				ID:          id,
				DisplayName: name,
				Status:      status,
			}
		}
	}

	records := make([]SiteRecord, 0, len(byID))
	for _, rec := range byID {
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if c := naturalsort.Compare(records[i].DisplayName, records[j].DisplayName); c != 0 {
			return c < 0
		}
		return naturalsort.Less(records[i].ID, records[j].ID)
	})
	return records, nil
}
