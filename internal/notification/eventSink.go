package notification

import (
	"context"
	"time"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/ds124wfegd/hotel-booking/pkg/events"
	"github.com/shopspring/decimal"
)

type eventPayload struct {
	Booking entity.BookingFacts `json:"booking"`
	Refund  *decimal.Decimal    `json:"refund,omitempty"`
}

// EventSink publishes booking lifecycle events to a broker, keyed by booking
// code. Reminders are not lifecycle events and are skipped.
type EventSink struct {
	publisher events.Publisher
	now       func() time.Time
}

func NewEventSink(p events.Publisher) *EventSink {
	return &EventSink{publisher: p, now: time.Now}
}

func (s *EventSink) Deliver(ctx context.Context, m Message) error {
	if m.Kind != KindBookingCreated && m.Kind != KindBookingCancelled {
		return nil
	}
	return s.publisher.Publish(ctx, events.Event{
		Type:       string(m.Kind),
		Key:        m.Facts.BookingCode,
		OccurredAt: s.now().UTC(),
		Payload: eventPayload{Booking: m.Facts, Refund: m.Refund},
	})
}
