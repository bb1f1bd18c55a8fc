package booking

import (
	"testing"

	"parkwatch/lib/extract"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAPISnapshot(t *testing.T) {
	snap := extract.Snapshot{
		Names: map[string]string{
			"-101": "10",
			"-102": "2",
			"-103": "S18",
		},
		Statuses: map[string]int{
			"-101": 0,
			"-102": 1,
			"-103": 0,
		},
	}

	records, err := Normalize(snap)
	require.NoError(t, err)
	require.Equal(t, []SiteRecord{
		{ID: "-102", DisplayName: "2", Status: StatusUnavailable},
		{ID: "-101", DisplayName: "10", Status: StatusAvailable},
		{ID: "-103", DisplayName: "S18", Status: StatusAvailable},
	}, records)
}

func TestNormalizeIdempotent(t *testing.T) {
	snap := extract.Snapshot{
		Names:    map[string]string{"A1": "Site One", "A2": "Site Two"},
		Statuses: map[string]int{"A1": 0, "A2": 1},
	}

	first, err := Normalize(snap)
	require.NoError(t, err)
	second, err := Normalize(snap)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(first, second))
}

func TestNormalizeMissingNameIsMalformed(t *testing.T) {
	snap := extract.Snapshot{
		Names:    map[string]string{"A1": "Site One"},
		Statuses: map[string]int{"A1": 0, "A2": 1},
	}

	_, err := Normalize(snap)
	require.Error(t, err)
	require.True(t, extract.IsMalformed(err))
}

func TestNormalizePageSnapshot(t *testing.T) {
	snap := extract.Snapshot{Available: []string{"92", "10", "s32b"}}

	records, err := Normalize(snap)
	require.NoError(t, err)
	require.Equal(t, []SiteRecord{
		{ID: "10", DisplayName: "10", Status: StatusAvailable},
		{ID: "92", DisplayName: "92", Status: StatusAvailable},
		{ID: "s32b", DisplayName: "s32b", Status: StatusAvailable},
	}, records)
}

func TestNormalizeDuplicateNamesCollapse(t *testing.T) {
	snap := extract.Snapshot{Available: []string{"10", "10"}}

	records, err := Normalize(snap)
	require.NoError(t, err)
	require.Len(t, records, 1)
}
