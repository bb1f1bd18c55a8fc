package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStamp(t *testing.T) {
	moment := time.Date(2025, time.July, 14, 9, 30, 5, 0, Location)
	require.Equal(t, "2025-07-14 09:30:05", Stamp(moment))
}

func TestNowUsesLocation(t *testing.T) {
	require.Equal(t, Location, Now().Location())
}
