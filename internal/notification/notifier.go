package notification

import (
	"context"
	"errors"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Sink takes a message somewhere: straight to the guest,
// onto a work queue or out to a broker.
type Sink interface {
	Deliver(ctx context.Context, m Message) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, m Message) error

func (f SinkFunc) Deliver(ctx context.Context, m Message) error { return f(ctx, m) }

// Notifier turns booking service callbacks into messages for a sink.
type Notifier struct {
	sink Sink
}

func NewNotifier(sink Sink) *Notifier {
	return &Notifier{sink: sink}
}

func (n *Notifier) NotifyBookingCreated(ctx context.Context, to entity.Contact, facts entity.BookingFacts) error {
	return n.sink.Deliver(ctx, Message{Kind: KindBookingCreated, To: to, Facts: facts})
}

func (n *Notifier) NotifyBookingCancelled(ctx context.Context, to entity.Contact, facts entity.BookingFacts, refund decimal.Decimal) error {
	return n.sink.Deliver(ctx, Message{Kind: KindBookingCancelled, To: to, Facts: facts, Refund: &refund})
}

func (n *Notifier) NotifyCheckinReminder(ctx context.Context, to entity.Contact, facts entity.BookingFacts) error {
	return n.sink.Deliver(ctx, Message{Kind: KindCheckinReminder, To: to, Facts: facts})
}

func (n *Notifier) NotifyCheckoutReminder(ctx context.Context, to entity.Contact, facts entity.BookingFacts) error {
	return n.sink.Deliver(ctx, Message{Kind: KindCheckoutReminder, To: to, Facts: facts})
}

// MultiSink delivers to every sink and joins their errors.
type MultiSink []Sink

func (ms MultiSink) Deliver(ctx context.Context, m Message) error {
	var errs []error
	for _, s := range ms {
		if err := s.Deliver(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink only logs. It is the fallback when no channel is configured.
type LogSink struct{}

func (LogSink) Deliver(_ context.Context, m Message) error {
	logrus.WithFields(logrus.Fields{
		"kind":         m.Kind,
		"booking_code": m.Facts.BookingCode,
		"email":        m.To.Email,
	}).Info("Notification")
	return nil
}
