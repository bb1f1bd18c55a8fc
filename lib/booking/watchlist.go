package booking

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Watchlist is the set of site identifiers the user cares about.
// Entries are matched case-insensitively against both record ids and
// display names. An empty watchlist means every site.
type Watchlist struct {
	entries []string
}

// ParseWatchlist builds a watchlist from a comma-separated flag value.
func ParseWatchlist(value string) Watchlist {
	if strings.TrimSpace(value) == "" {
		return Watchlist{}
	}
	return NewWatchlist(strings.Split(value, ","))
}

// NewWatchlist normalizes entries: trimmed, lower-cased, empties
// dropped.
func NewWatchlist(raw []string) Watchlist {
	var entries []string
	for _, entry := range raw {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			entries = append(entries, entry)
		}
	}
	return Watchlist{entries: entries}
}

func (w Watchlist) Empty() bool { return len(w.entries) == 0 }

func (w Watchlist) Entries() []string { return w.entries }

// Filter keeps the available records the watchlist selects, in the
// order they were given (canonical order), never watchlist order.
func (w Watchlist) Filter(records []SiteRecord) []SiteRecord {
	var out []SiteRecord
	for _, rec := range records {
		if rec.Status != StatusAvailable {
			continue
		}
		if w.Empty() || w.matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (w Watchlist) matches(rec SiteRecord) bool {
	id := strings.ToLower(rec.ID)
	name := strings.ToLower(rec.DisplayName)
	for _, entry := range w.entries {
		if entry == id || entry == name {
			return true
		}
	}
	return false
}

// Unmatched returns the entries that selected nothing in the record
// set, available or not. Used for diagnostics only.
func (w Watchlist) Unmatched(records []SiteRecord) []string {
	var missing []string
	for _, entry := range w.entries {
		found := false
		for _, rec := range records {
			if entry == strings.ToLower(rec.ID) || entry == strings.ToLower(rec.DisplayName) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, entry)
		}
	}
	return missing
}

// suggestion threshold for JaroWinkler similarity; below this a hint
// is more confusing than helpful
const suggestSimilarity = 0.85

// Suggest returns the closest known site name to entry, or "" when
// nothing is close enough. Never affects filtering.
func Suggest(entry string, records []SiteRecord) string {
	best := ""
	bestScore := suggestSimilarity
	for _, rec := range records {
		score := matchr.JaroWinkler(strings.ToLower(entry), strings.ToLower(rec.DisplayName), false)
		if score > bestScore {
			best = rec.DisplayName
			bestScore = score
		}
	}
	return best
}
