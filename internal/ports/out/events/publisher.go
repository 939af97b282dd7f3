package events

import (
	"context"
	"time"
)

// Event is a domain event published for downstream consumers (till, signage, analytics).
type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

// Publisher sends domain events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}
