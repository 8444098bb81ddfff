package service

import (
	"context"
	"log/slog"

	"forum/internal/middleware"
	"forum/internal/notifications"
	"forum/internal/observability"
)

// publishEvent delivers a feed event best-effort. The write that produced it
// has already committed, so a delivery failure is logged and counted only.
func publishEvent(ctx context.Context, pub notifications.Publisher, event notifications.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		observability.EventsPublished.WithLabelValues(event.Type, "error").Inc()
		middleware.Logger.WarnContext(ctx, "event publish failed",
			slog.String("event_type", event.Type), slog.String("error", err.Error()))
		return
	}
	observability.EventsPublished.WithLabelValues(event.Type, "ok").Inc()
}
