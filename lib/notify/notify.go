// Package notify delivers availability reports to external channels.
// Delivery is best effort: a failed notifier never aborts the poll
// loop, it only logs.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"parkwatch/lib/booking"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("notify")

type Notifier interface {
	// Notify delivers a report for a poll cycle that found
	// availability. It is never called for empty cycles.
	Notify(ctx context.Context, result booking.PollResult) error
}

// Multi fans a report out to every notifier, logging failures instead
// of propagating them.
type Multi struct {
	notifiers []Notifier
}

func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Notify(ctx context.Context, result booking.PollResult) error {
	ctx, span := tracer.Start(ctx, "Notify")
	defer span.End()

	failed := 0
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, result); err != nil {
			failed++
			slog.Error("notification failed", "notifier", fmt.Sprintf("%T", n), "err", err)
			span.RecordError(err)
		}
	}
	if failed > 0 {
		span.SetStatus(codes.Error, "some notifications failed")
	}
	return nil
}
