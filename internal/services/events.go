package services

import (
	"context"
	"log/slog"

	"bilancio/internal/amqp"
)

// publishEvent puts an event on the household feed. The feed is best
// effort: a missing client or a broker hiccup never fails the request
// that triggered the event.
func publishEvent(ctx context.Context, client *amqp.Client, kind string, householdID int64, payload any) {
	if client == nil {
		slog.DebugContext(ctx, "Event feed not configured, skipping event", "kind", kind)
		return
	}

	evt, err := amqp.NewEvent(kind, householdID, payload)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build event", "kind", kind, "error", err)
		return
	}
	if err := client.PublishEvent(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event",
			"kind", kind,
			"household_id", householdID,
			"error", err)
	}
}
