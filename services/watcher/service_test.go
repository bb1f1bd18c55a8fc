package watcher

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"parkwatch/lib/booking"
	"parkwatch/lib/extract"
	"parkwatch/lib/retry"
	"parkwatch/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type stubStrategy struct {
	snap   extract.Snapshot
	err    error
	calls  int
	closed bool
}

func (s *stubStrategy) Extract(ctx context.Context) (extract.Snapshot, error) {
	s.calls++
	if s.err != nil {
		return extract.Snapshot{}, s.err
	}
	return s.snap, nil
}

func (s *stubStrategy) Close() error {
	s.closed = true
	return nil
}

type captureNotifier struct {
	results []booking.PollResult
}

func (c *captureNotifier) Notify(ctx context.Context, result booking.PollResult) error {
	c.results = append(c.results, result)
	return nil
}

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts:    2,
		TransientDelay: time.Millisecond,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     2.0,
	}
}

func apiSnapshot() extract.Snapshot {
	return extract.Snapshot{
		Names:    map[string]string{"A1": "Site One", "A2": "Site Two"},
		Statuses: map[string]int{"A1": 0, "A2": 1},
	}
}

func newTestService(strategy extract.Strategy, watchlist booking.Watchlist, notifier *captureNotifier) (*Service, *bytes.Buffer) {
	var out bytes.Buffer
	svc := New(strategy, watchlist, notifier, NewReporter(&out, false), Config{
		Interval: time.Millisecond,
		Retry:    fastRetry(),
	})
	return svc, &out
}

func TestCycleReportsFilteredAvailability(t *testing.T) {
	defer telemetry.SetupForTesting(t, "services/watcher")()

	strategy := &stubStrategy{snap: apiSnapshot()}
	notifier := &captureNotifier{}
	svc, out := newTestService(strategy, booking.Watchlist{}, notifier)

	err := svc.cycle(context.Background())
	require.NoError(t, err)

	require.Contains(t, out.String(), "Available sites: Site One")
	require.NotContains(t, out.String(), "Site Two", "unavailable sites never appear in the report line")
	require.Len(t, notifier.results, 1)
	require.Equal(t, []string{"Site One"}, notifier.results[0].Names())
	require.Equal(t, StateReporting, svc.State())
}

func TestCycleWatchedSiteUnavailable(t *testing.T) {
	strategy := &stubStrategy{snap: apiSnapshot()}
	notifier := &captureNotifier{}
	svc, out := newTestService(strategy, booking.NewWatchlist([]string{"site two"}), notifier)

	err := svc.cycle(context.Background())
	require.NoError(t, err)

	require.Contains(t, out.String(), "No Availability")
	require.Empty(t, notifier.results, "empty results must not notify")
}

func TestCycleTreatsExhaustionAsEmpty(t *testing.T) {
	strategy := &stubStrategy{err: extract.Timeout("wait markers", errors.New("never rendered"))}
	svc, out := newTestService(strategy, booking.Watchlist{}, &captureNotifier{})

	err := svc.cycle(context.Background())
	require.NoError(t, err, "exhaustion is a no-data cycle, not a loop failure")
	require.Contains(t, out.String(), "No Availability")
	require.Equal(t, 2, strategy.calls)
}

func TestCycleMalformedSnapshotAborts(t *testing.T) {
	strategy := &stubStrategy{snap: extract.Snapshot{
		Names:    map[string]string{},
		Statuses: map[string]int{"A9": 0},
	}}
	svc, _ := newTestService(strategy, booking.Watchlist{}, &captureNotifier{})

	err := svc.cycle(context.Background())
	require.Error(t, err)
	require.True(t, extract.IsMalformed(err))
}

func TestRunStopsOnTransportError(t *testing.T) {
	strategy := &stubStrategy{err: extract.Transport("navigate", errors.New("connection refused"))}
	svc, _ := newTestService(strategy, booking.Watchlist{}, &captureNotifier{})

	err := svc.Run(context.Background())
	require.Error(t, err)
	require.True(t, extract.IsTransport(err))
	require.Equal(t, StateStopped, svc.State())
	require.True(t, strategy.closed, "session must be released on fatal exit")
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	strategy := &stubStrategy{snap: apiSnapshot()}
	svc, _ := newTestService(strategy, booking.Watchlist{}, &captureNotifier{})

	err := svc.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StateStopped, svc.State())
	require.True(t, strategy.closed)
}

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		from, to State
		ok       bool
	}{
		{StateIdle, StateExtracting, true},
		{StateExtracting, StateReconciling, true},
		{StateExtracting, StateReporting, true},
		{StateReconciling, StateReporting, true},
		{StateReporting, StateSleeping, true},
		{StateSleeping, StateExtracting, true},
		{StateReporting, StateExtracting, false},
		{StateSleeping, StateReporting, false},
		{StateStopped, StateExtracting, false},
	}
	for _, c := range cases {
		err := validateTransition(c.from, c.to)
		if c.ok {
			require.NoError(t, err, "%s -> %s", c.from, c.to)
		} else {
			require.Error(t, err, "%s -> %s", c.from, c.to)
		}
	}
	require.True(t, IsTerminal(StateStopped))
	require.False(t, IsTerminal(StateSleeping))
}
