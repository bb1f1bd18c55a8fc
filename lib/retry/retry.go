// Package retry wraps an extraction strategy call with bounded
// retries. The policy follows the failure taxonomy: transient errors
// restart the current attempt after a fixed delay without consuming
// an attempt, timeouts consume an attempt and back off exponentially,
// transport and malformed errors propagate immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"parkwatch/lib/extract"

	"github.com/mazen160/go-random"
)

// ErrExhausted reports that every attempt failed. The poll loop
// treats it as a "no data" cycle, not a fatal condition.
var ErrExhausted = errors.New("extraction attempts exhausted")

type Config struct {
	// MaxAttempts includes the initial attempt.
	MaxAttempts int
	// TransientDelay is the fixed pause before restarting an attempt
	// after a transient failure.
	TransientDelay time.Duration
	// InitialBackoff is the delay after the first consumed attempt;
	// it doubles per Multiplier up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// MaxTransientRestarts bounds free restarts within one attempt;
	// past it the transient failure consumes the attempt, so a
	// permanently churning page cannot livelock the controller.
	MaxTransientRestarts int
	// Jitter is the maximum random addition to each backoff delay.
	Jitter time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:          5,
		TransientDelay:       250 * time.Millisecond,
		InitialBackoff:       time.Second,
		MaxBackoff:           30 * time.Second,
		Multiplier:           2.0,
		MaxTransientRestarts: 3,
		Jitter:               250 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.TransientDelay <= 0 {
		c.TransientDelay = d.TransientDelay
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.Multiplier <= 1 {
		c.Multiplier = d.Multiplier
	}
	if c.MaxTransientRestarts <= 0 {
		c.MaxTransientRestarts = d.MaxTransientRestarts
	}
	return c
}

// Extract runs strategy.Extract under the retry policy. On
// exhaustion it returns a zero snapshot wrapped in ErrExhausted.
func Extract(ctx context.Context, config Config, strategy extract.Strategy) (extract.Snapshot, error) {
	config = config.withDefaults()

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return extract.Snapshot{}, err
		}

		snap, err := runAttempt(ctx, config, strategy, attempt)
		if err == nil {
			return snap, nil
		}
		if extract.IsFatal(err) || errors.Is(err, context.Canceled) {
			return extract.Snapshot{}, err
		}
		lastErr = err
		slog.Warn("extraction attempt failed",
			"attempt", attempt,
			"max_attempts", config.MaxAttempts,
			"err", err,
		)

		if attempt < config.MaxAttempts {
			if err := sleep(ctx, backoff+jitter(config.Jitter)); err != nil {
				return extract.Snapshot{}, err
			}
			backoff = time.Duration(float64(backoff) * config.Multiplier)
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	return extract.Snapshot{}, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, config.MaxAttempts, lastErr)
}

// runAttempt performs one attempt, absorbing up to
// MaxTransientRestarts transient failures within it.
func runAttempt(ctx context.Context, config Config, strategy extract.Strategy, attempt int) (extract.Snapshot, error) {
	restarts := 0
	for {
		snap, err := strategy.Extract(ctx)
		if err == nil {
			return snap, nil
		}

		if extract.IsTransient(err) && restarts < config.MaxTransientRestarts {
			restarts++
			slog.Debug("restarting attempt after transient failure",
				"attempt", attempt,
				"restart", restarts,
				"err", err,
			)
			if serr := sleep(ctx, config.TransientDelay); serr != nil {
				return extract.Snapshot{}, serr
			}
			continue
		}
		return extract.Snapshot{}, err
	}
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	ms, err := random.IntRange(0, int(max/time.Millisecond)+1)
	if err != nil {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
