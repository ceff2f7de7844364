package worker

import (
	"context"
	"time"

	"github.com/ds124wfegd/hotel-booking/internal/service"
	"github.com/ds124wfegd/hotel-booking/pkg/scheduler"

	"github.com/sirupsen/logrus"
)

// BookingCleanupWorker completes ACTIVE bookings whose stay has ended.
type BookingCleanupWorker struct {
	bookingService service.BookingService
	interval       time.Duration
}

func NewBookingCleanupWorker(bookingService service.BookingService, interval time.Duration) *BookingCleanupWorker {
	return &BookingCleanupWorker{
		bookingService: bookingService,
		interval:       interval,
	}
}

// Schedule registers the daily sweep at "HH:MM" and, when an interval is
// configured, a fallback sweep every interval. Both stop with the scheduler.
func (w *BookingCleanupWorker) Schedule(s *scheduler.Scheduler, at string) error {
	if err := s.AddDaily("expiry_sweep", at, w.Run); err != nil {
		return err
	}
	if w.interval <= 0 {
		return nil
	}

	logrus.WithField("interval", w.interval.String()).Info("Booking cleanup interval sweep registered")
	return s.AddInterval("expiry_sweep_interval", w.interval, w.Run)
}

// Run performs one sweep.
func (w *BookingCleanupWorker) Run(ctx context.Context) error {
	completed, err := w.bookingService.SweepExpiredBookings(ctx)
	if err != nil {
		return err
	}

	if completed > 0 {
		logrus.Infof("Expired bookings cleanup completed: %d bookings marked COMPLETED", completed)
	} else {
		logrus.Debug("No expired bookings found for cleanup")
	}
	return nil
}
