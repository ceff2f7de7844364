package service

import (
	"context"

	repository "github.com/ds124wfegd/hotel-booking/internal/database/postgres"
	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/sirupsen/logrus"
)

// ExpirySweeper completes ACTIVE bookings whose check-out date has passed.
// It writes booking rows directly and never takes a room lock: a stay that
// ended before today cannot overlap a booking that starts today or later.
type ExpirySweeper struct {
	bookings repository.BookingRepository
	clock    Clock
}

func NewExpirySweeper(bookings repository.BookingRepository, clock Clock) *ExpirySweeper {
	return &ExpirySweeper{bookings: bookings, clock: clock}
}

// Sweep returns how many bookings it moved to COMPLETED. Running it again, or
// concurrently with itself, is harmless: completed rows no longer match.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int64, error) {
	now := s.clock()
	count, err := s.bookings.CompleteExpired(ctx, entity.DateOf(now), now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logrus.WithField("count", count).Info("Expired bookings completed")
	}
	return count, nil
}
