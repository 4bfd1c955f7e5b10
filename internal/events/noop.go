package events

import (
	"context"
	"log/slog"
)

// NoopPublisher drops every event. It is used when no NATS URL is
// configured; with a Logger set, dropped events are logged at debug level.
type NoopPublisher struct {
	Logger *slog.Logger
}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	if n.Logger != nil {
		n.Logger.DebugContext(ctx, "event not published (no bus)", "topic", topic)
	}
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
