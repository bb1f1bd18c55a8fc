// Package watcher runs the poll loop: extract a snapshot, reconcile it
// against the watchlist, report, notify, sleep, repeat. The loop only
// stops on cancellation or a fatal extraction error.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"parkwatch/lib/booking"
	"parkwatch/lib/extract"
	"parkwatch/lib/notify"
	"parkwatch/lib/retry"
	"parkwatch/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("services/watcher")

type Config struct {
	// Interval is the sleep between cycles, not between attempts.
	Interval time.Duration
	Retry    retry.Config
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	return c
}

type Service struct {
	strategy  extract.Strategy
	watchlist booking.Watchlist
	notifier  notify.Notifier
	reporter  *Reporter
	config    Config

	mu    sync.Mutex
	state State
}

// New assembles a poll loop. notifier may be nil when no channel is
// configured; reports still go to the reporter.
func New(strategy extract.Strategy, watchlist booking.Watchlist, notifier notify.Notifier, reporter *Reporter, config Config) *Service {
	return &Service{
		strategy:  strategy,
		watchlist: watchlist,
		notifier:  notifier,
		reporter:  reporter,
		config:    config.withDefaults(),
		state:     StateIdle,
	}
}

// State returns the loop's current position in the cycle.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves the state machine. The cycle sequencing is fixed,
// so an invalid transition is a programming bug, not a runtime
// condition.
func (s *Service) transition(ctx context.Context, to State) {
	if err := validateTransition(s.State(), to); err != nil {
		panic(err)
	}
	s.mu.Lock()
	s.state = to
	s.mu.Unlock()

	trace.SpanFromContext(ctx).AddEvent(string(to))
	slog.Debug("poll loop state", "state", to)
}

// Run polls until ctx is cancelled or a fatal extraction error occurs.
// Cancellation returns ctx.Err; the caller decides how to exit. The
// extraction session is released on every exit path.
func (s *Service) Run(ctx context.Context) error {
	defer func() {
		if err := s.strategy.Close(); err != nil {
			slog.Warn("closing extraction session", "err", err)
		}
	}()
	defer s.transition(context.Background(), StateStopped)

	for {
		if err := s.cycle(ctx); err != nil {
			return err
		}

		s.transition(ctx, StateSleeping)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.config.Interval):
		}
	}
}

// cycle runs one extract-reconcile-report pass. A nil return means the
// loop keeps going, including for "no data" cycles.
func (s *Service) cycle(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "cycle")
	defer span.End()

	s.transition(ctx, StateExtracting)
	snap, err := retry.Extract(ctx, s.config.Retry, s.strategy)

	var records []booking.SiteRecord
	switch {
	case err == nil:
		s.transition(ctx, StateReconciling)
		records, err = booking.Normalize(snap)
		if err != nil {
			// malformed snapshot: the source contract changed, rerunning
			// would produce the same garbage
			span.RecordError(err)
			span.SetStatus(codes.Error, "normalize snapshot")
			return err
		}
	case errors.Is(err, retry.ErrExhausted):
		span.RecordError(err)
		slog.Warn("extraction exhausted, treating cycle as empty", "err", err)
	case extract.IsFatal(err), ctx.Err() != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		return err
	default:
		// unclassified failure: log it and keep polling
		span.RecordError(err)
		slog.Error("unclassified extraction failure, treating cycle as empty", "err", err)
	}

	s.transition(ctx, StateReporting)
	s.diagnoseWatchlist(records)

	result := booking.PollResult{
		Time:      timezone.Now(),
		Available: s.watchlist.Filter(records),
	}
	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int("available", len(result.Available)),
	)

	s.reporter.Report(result, records)
	if len(result.Available) > 0 && s.notifier != nil {
		if err := s.notifier.Notify(ctx, result); err != nil {
			span.RecordError(err)
			slog.Error("notification failed", "err", err)
		}
	}
	return nil
}

// diagnoseWatchlist warns about entries that selected nothing, with a
// closest-name hint when one is close enough to be useful.
func (s *Service) diagnoseWatchlist(records []booking.SiteRecord) {
	if s.watchlist.Empty() || len(records) == 0 {
		return
	}
	for _, entry := range s.watchlist.Unmatched(records) {
		if hint := booking.Suggest(entry, records); hint != "" {
			slog.Warn("watchlist entry matched nothing", "entry", entry, "closest", hint)
		} else {
			slog.Warn("watchlist entry matched nothing", "entry", entry)
		}
	}
}
