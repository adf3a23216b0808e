package events

import (
	"context"
	"encoding/json"
	"log/slog"
)

// NoopPublisher is a Publisher that does nothing (used when NATS is not configured).
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}

// LogPublisher writes each event to a logger at debug level, so a run
// without a bus still shows its event stream under --verbose.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, topic string, event any) error {
	if !p.Logger.Enabled(ctx, slog.LevelDebug) {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.Logger.DebugContext(ctx, "event", "topic", topic, "data", string(data))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
