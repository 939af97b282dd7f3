package events

import (
	"context"

	"go.uber.org/zap"

	eventsport "github.com/eightonethree/cafe-api/internal/ports/out/events"
)

// LogPublisher writes events to the logger instead of a broker. Used when no
// RABBITMQ_URL is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e eventsport.Event) error {
	_ = ctx
	p.logger.Debug("event", zap.String("type", e.Type), zap.Time("occurredAt", e.OccurredAt), zap.Any("data", e.Data))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
