// Package events publishes domain events to a message broker.
package events

import (
	"context"
	"time"
)

// Event is one domain event. Key groups related events (ordering key for
// Kafka); Payload is marshalled as JSON.
type Event struct {
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
