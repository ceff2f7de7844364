package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/ds124wfegd/hotel-booking/pkg/queue"
)

// QueueSink hands messages to a work queue; a worker delivers them later with retries.
// With channels given, each message is split into one task per channel so a
// retry resends only the channel that failed.
type QueueSink struct {
	queue    queue.Queue
	channels []Channel
}

func NewQueueSink(q queue.Queue, channels ...Channel) *QueueSink {
	return &QueueSink{queue: q, channels: channels}
}

func (s *QueueSink) Deliver(ctx context.Context, m Message) error {
	if len(s.channels) == 0 {
		return s.publish(ctx, m)
	}

	var errs []error
	for _, c := range s.channels {
		if c == ChannelChat && !postsToChat(m.Kind) {
			continue
		}
		part := m
		part.Channel = c
		if err := s.publish(ctx, part); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *QueueSink) publish(ctx context.Context, m Message) error {
	task, err := queue.NewTask(queue.TaskTypeSendNotification, m)
	if err != nil {
		return err
	}
	if err := s.queue.Publish(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s for %s: %w", m.Kind, m.Facts.BookingCode, err)
	}
	return nil
}

// DecodeTask extracts the message carried by a notification task.
func DecodeTask(task *queue.Task) (Message, error) {
	var m Message
	if task.Type != queue.TaskTypeSendNotification {
		return m, fmt.Errorf("unexpected task type %q", task.Type)
	}
	if err := task.Decode(&m); err != nil {
		return m, err
	}
	return m, nil
}
