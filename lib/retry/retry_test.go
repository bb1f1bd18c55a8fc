package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"parkwatch/lib/extract"

	"github.com/stretchr/testify/require"
)

type scriptedStrategy struct {
	calls   int
	results []error
	snap    extract.Snapshot
}

func (s *scriptedStrategy) Extract(ctx context.Context) (extract.Snapshot, error) {
	err := s.results[len(s.results)-1]
	if s.calls < len(s.results) {
		err = s.results[s.calls]
	}
	s.calls++
	if err != nil {
		return extract.Snapshot{}, err
	}
	return s.snap, nil
}

func (s *scriptedStrategy) Close() error { return nil }

func fastConfig() Config {
	return Config{
		MaxAttempts:          5,
		TransientDelay:       time.Millisecond,
		InitialBackoff:       time.Millisecond,
		MaxBackoff:           4 * time.Millisecond,
		Multiplier:           2.0,
		MaxTransientRestarts: 3,
	}
}

func TestExtractReturnsFirstSuccess(t *testing.T) {
	want := extract.Snapshot{Available: []string{"s18"}}
	strategy := &scriptedStrategy{results: []error{nil}, snap: want}

	snap, err := Extract(context.Background(), fastConfig(), strategy)
	require.NoError(t, err)
	require.Equal(t, want, snap)
	require.Equal(t, 1, strategy.calls)
}

func TestExtractExhaustsAttemptsOnTimeout(t *testing.T) {
	timeout := extract.Timeout("wait markers", errors.New("never rendered"))
	strategy := &scriptedStrategy{
		results: []error{timeout, timeout, timeout, timeout, timeout},
	}

	snap, err := Extract(context.Background(), fastConfig(), strategy)
	require.ErrorIs(t, err, ErrExhausted)
	require.True(t, extract.IsTimeout(err), "last attempt error must survive wrapping")
	require.Equal(t, extract.Snapshot{}, snap)
	require.Equal(t, 5, strategy.calls, "timeouts consume attempts")
}

func TestExtractTransientDoesNotConsumeAttempt(t *testing.T) {
	strategy := &scriptedStrategy{
		results: []error{
			extract.Transient("read marker class", errors.New("node detached")),
			extract.Transient("read marker class", errors.New("node detached")),
			nil,
		},
		snap: extract.Snapshot{Available: []string{"10"}},
	}

	snap, err := Extract(context.Background(), fastConfig(), strategy)
	require.NoError(t, err)
	require.Equal(t, []string{"10"}, snap.Available)
	require.Equal(t, 3, strategy.calls)
}

func TestExtractTransientRestartsBounded(t *testing.T) {
	transient := extract.Transient("read marker class", errors.New("node detached"))
	config := fastConfig()
	config.MaxAttempts = 2
	// 2 attempts, each absorbing MaxTransientRestarts restarts plus the
	// failure that consumes the attempt.
	strategy := &scriptedStrategy{
		results: []error{transient, transient, transient, transient, transient, transient, transient, transient},
	}

	_, err := Extract(context.Background(), config, strategy)
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, 2*(config.MaxTransientRestarts+1), strategy.calls)
}

func TestExtractTransportPropagatesImmediately(t *testing.T) {
	transport := extract.Transport("navigate", errors.New("connection refused"))
	strategy := &scriptedStrategy{results: []error{transport}}

	_, err := Extract(context.Background(), fastConfig(), strategy)
	require.True(t, extract.IsTransport(err))
	require.NotErrorIs(t, err, ErrExhausted)
	require.Equal(t, 1, strategy.calls)
}

func TestExtractMalformedPropagatesImmediately(t *testing.T) {
	malformed := extract.Malformed("fetch names", errors.New("empty resource list"))
	strategy := &scriptedStrategy{results: []error{malformed}}

	_, err := Extract(context.Background(), fastConfig(), strategy)
	require.True(t, extract.IsMalformed(err))
	require.Equal(t, 1, strategy.calls)
}

func TestExtractHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	strategy := &scriptedStrategy{results: []error{nil}}
	_, err := Extract(ctx, fastConfig(), strategy)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, strategy.calls)
}
