package booking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func available(names ...string) []SiteRecord {
	records := make([]SiteRecord, len(names))
	for i, name := range names {
		records[i] = SiteRecord{ID: name, DisplayName: name, Status: StatusAvailable}
	}
	return records
}

func TestFilterKeepsCanonicalOrder(t *testing.T) {
	// watchlist order is 92 then 10, output must stay canonical
	w := NewWatchlist([]string{"92", "10"})

	got := w.Filter(available("10", "55", "92"))
	require.Equal(t, available("10", "92"), got)
}

func TestFilterEmptyWatchlistPassesAllAvailable(t *testing.T) {
	w := ParseWatchlist("")
	records := []SiteRecord{
		{ID: "10", DisplayName: "10", Status: StatusAvailable},
		{ID: "11", DisplayName: "11", Status: StatusUnavailable},
		{ID: "12", DisplayName: "12", Status: StatusUnknown},
	}

	got := w.Filter(records)
	require.Equal(t, available("10"), got)
}

func TestFilterMatchesIDOrDisplayNameCaseInsensitive(t *testing.T) {
	w := ParseWatchlist(" Site Two , s18 ")
	records := []SiteRecord{
		{ID: "A2", DisplayName: "Site Two", Status: StatusAvailable},
		{ID: "S18", DisplayName: "Lakeside 18", Status: StatusAvailable},
		{ID: "A3", DisplayName: "Site Three", Status: StatusAvailable},
	}

	got := w.Filter(records)
	require.Len(t, got, 2)
	require.Equal(t, "A2", got[0].ID)
	require.Equal(t, "S18", got[1].ID)
}

func TestFilterExcludesUnavailableEvenWhenWatched(t *testing.T) {
	w := ParseWatchlist("site two")
	records := []SiteRecord{
		{ID: "A2", DisplayName: "Site Two", Status: StatusUnavailable},
	}
	require.Empty(t, w.Filter(records))
}

func TestUnmatched(t *testing.T) {
	w := ParseWatchlist("10,93")
	missing := w.Unmatched(available("10", "92"))
	require.Equal(t, []string{"93"}, missing)
}

func TestSuggest(t *testing.T) {
	records := available("Maple Bay 12", "Cedar Grove 7")
	require.Equal(t, "Maple Bay 12", Suggest("maple bay 21", records))
	require.Empty(t, Suggest("zzzz", records))
}
