package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ds124wfegd/hotel-booking/internal/notification"
	"github.com/ds124wfegd/hotel-booking/internal/service"
	"github.com/ds124wfegd/hotel-booking/pkg/queue"
	"github.com/ds124wfegd/hotel-booking/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweepStub struct {
	service.BookingService
	calls int32
	err   error
}

func (s *sweepStub) SweepExpiredBookings(context.Context) (int64, error) {
	atomic.AddInt32(&s.calls, 1)
	return 2, s.err
}

func TestCleanupWorkerRun(t *testing.T) {
	stub := &sweepStub{}
	require.NoError(t, NewBookingCleanupWorker(stub, time.Hour).Run(context.Background()))

	stub.err = errors.New("db down")
	assert.EqualError(t, NewBookingCleanupWorker(stub, time.Hour).Run(context.Background()), "db down")
}

func TestCleanupWorkerSchedule(t *testing.T) {
	t.Run("interval sweep stops with the scheduler", func(t *testing.T) {
		stub := &sweepStub{}
		sched := scheduler.NewScheduler(time.UTC)
		require.NoError(t, NewBookingCleanupWorker(stub, 5*time.Millisecond).Schedule(sched, "03:00"))

		sched.Start(context.Background())
		assert.Eventually(t, func() bool { return atomic.LoadInt32(&stub.calls) >= 2 }, time.Second, time.Millisecond)
		sched.Stop()

		after := atomic.LoadInt32(&stub.calls)
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, after, atomic.LoadInt32(&stub.calls))
	})

	t.Run("no interval registers only the daily sweep", func(t *testing.T) {
		stub := &sweepStub{}
		sched := scheduler.NewScheduler(time.UTC)
		require.NoError(t, NewBookingCleanupWorker(stub, 0).Schedule(sched, "03:00"))

		sched.Start(context.Background())
		time.Sleep(20 * time.Millisecond)
		sched.Stop()
		assert.Zero(t, atomic.LoadInt32(&stub.calls))
	})

	t.Run("invalid time of day", func(t *testing.T) {
		err := NewBookingCleanupWorker(&sweepStub{}, time.Minute).Schedule(scheduler.NewScheduler(time.UTC), "25:99")
		assert.Error(t, err)
	})
}

type chanQueue struct {
	handler func(*queue.Task) error
}

func (q *chanQueue) Publish(context.Context, *queue.Task) error { return nil }
func (q *chanQueue) Subscribe(_ context.Context, h func(*queue.Task) error) error {
	q.handler = h
	return nil
}
func (q *chanQueue) Close() error { return nil }

func TestNotificationWorkerHandle(t *testing.T) {
	var got []notification.Message
	sink := notification.SinkFunc(func(ctx context.Context, m notification.Message) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		got = append(got, m)
		return nil
	})

	q := &chanQueue{}
	w := NewNotificationWorker(q, sink, time.Second)
	require.NoError(t, w.Start(context.Background()))
	require.NotNil(t, q.handler)

	task, err := queue.NewTask(queue.TaskTypeSendNotification, notification.Message{Kind: notification.KindCheckinReminder})
	require.NoError(t, err)
	require.NoError(t, q.handler(task))
	require.Len(t, got, 1)
	assert.Equal(t, notification.KindCheckinReminder, got[0].Kind)
}

func TestNotificationWorkerErrors(t *testing.T) {
	failing := notification.SinkFunc(func(context.Context, notification.Message) error { return errors.New("smtp down") })
	w := NewNotificationWorker(&chanQueue{}, failing, 0)

	err := w.Handle(&queue.Task{ID: "1", Type: "other"})
	assert.ErrorIs(t, err, ErrMalformedTask)

	task, _ := queue.NewTask(queue.TaskTypeSendNotification, notification.Message{Kind: notification.KindBookingCreated})
	assert.ErrorContains(t, w.Handle(task), "smtp down")
}
