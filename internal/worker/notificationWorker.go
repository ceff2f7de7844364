package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/hotel-booking/internal/notification"
	"github.com/ds124wfegd/hotel-booking/pkg/queue"

	"github.com/sirupsen/logrus"
)

// ErrMalformedTask marks tasks that can never be delivered.
var ErrMalformedTask = errors.New("invalid notification task")

// NotificationWorker consumes queued notifications and delivers them. Failed
// deliveries are retried by the queue and end up in its DLQ.
type NotificationWorker struct {
	queue     queue.Queue
	deliverer notification.Sink
	timeout   time.Duration
}

func NewNotificationWorker(q queue.Queue, deliverer notification.Sink, timeout time.Duration) *NotificationWorker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotificationWorker{queue: q, deliverer: deliverer, timeout: timeout}
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	if err := w.queue.Subscribe(ctx, w.Handle); err != nil {
		return fmt.Errorf("failed to subscribe notification worker: %w", err)
	}
	logrus.Info("Notification worker started")
	return nil
}

// Handle delivers a single task.
func (w *NotificationWorker) Handle(task *queue.Task) error {
	msg, err := notification.DecodeTask(task)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedTask, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.deliverer.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver %s for booking %s: %w", msg.Kind, msg.Facts.BookingCode, err)
	}

	logrus.WithFields(logrus.Fields{
		"task_id":      task.ID,
		"kind":         msg.Kind,
		"channel":      msg.Channel,
		"booking_code": msg.Facts.BookingCode,
	}).Debug("Notification delivered")
	return nil
}
