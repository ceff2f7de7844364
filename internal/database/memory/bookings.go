package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
)

type bookingStore struct {
	*Store
}

func copyBooking(b *entity.Booking) *entity.Booking {
	out := *b
	if b.SpecialRequests != nil {
		sr := *b.SpecialRequests
		out.SpecialRequests = &sr
	}
	return &out
}

func (r *bookingStore) Create(ctx context.Context, booking *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[booking.Code]; exists {
		return entity.ErrBookingCodeCollision
	}
	if _, ok := r.rooms[booking.RoomID]; !ok {
		return entity.ErrRoomNotFound
	}
	if _, ok := r.users[booking.UserID]; !ok {
		return entity.ErrUserNotFound
	}

	code := booking.Code
	r.bookings[code] = copyBooking(booking)
	onRollback(ctx, func() { delete(r.bookings, code) })
	return nil
}

func (r *bookingStore) GetByCode(ctx context.Context, code string) (*entity.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[code]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	return copyBooking(b), nil
}

func (r *bookingStore) GetByCodeForUpdate(ctx context.Context, code string) (*entity.Booking, error) {
	if _, err := r.GetByCode(ctx, code); err != nil {
		return nil, err
	}
	if err := r.WithinTx(ctx, func(ctx context.Context) error {
		return r.lock(ctx, bookingKey(code))
	}); err != nil {
		return nil, err
	}
	return r.GetByCode(ctx, code)
}

func (r *bookingStore) Update(ctx context.Context, booking *entity.Booking) error {
	return r.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.lock(ctx, bookingKey(booking.Code)); err != nil {
			return err
		}

		r.mu.Lock()
		defer r.mu.Unlock()

		current, ok := r.bookings[booking.Code]
		if !ok {
			return entity.ErrBookingNotFound
		}
		if _, ok := r.rooms[booking.RoomID]; !ok {
			return entity.ErrRoomNotFound
		}
		prev := copyBooking(current)
		next := copyBooking(booking)
		next.CreatedAt = prev.CreatedAt
		next.UserID = prev.UserID
		r.bookings[booking.Code] = next
		onRollback(ctx, func() { r.bookings[prev.Code] = prev })
		return nil
	})
}

func (r *bookingStore) UpdateStatus(ctx context.Context, code string, status entity.BookingStatus, at time.Time) error {
	return r.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.lock(ctx, bookingKey(code)); err != nil {
			return err
		}

		r.mu.Lock()
		defer r.mu.Unlock()

		current, ok := r.bookings[code]
		if !ok {
			return entity.ErrBookingNotFound
		}
		prev := copyBooking(current)
		next := copyBooking(current)
		next.Status = status
		next.UpdatedAt = at
		r.bookings[code] = next
		onRollback(ctx, func() { r.bookings[code] = prev })
		return nil
	})
}

func (r *bookingStore) CountOverlapping(ctx context.Context, roomID int64, stay entity.DateRange, excludeCode string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, b := range r.bookings {
		if b.RoomID != roomID || b.Status != entity.BookingStatusActive {
			continue
		}
		if excludeCode != "" && b.Code == excludeCode {
			continue
		}
		if stay.Overlaps(b.Stay()) {
			count++
		}
	}
	return count, nil
}

func (r *bookingStore) filter(keep func(b *entity.Booking) bool, less func(a, b *entity.Booking) bool) []*entity.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*entity.Booking{}
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, copyBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byCheckIn(a, b *entity.Booking) bool {
	if a.CheckIn.Equal(b.CheckIn) {
		return a.Code < b.Code
	}
	return a.CheckIn.Before(b.CheckIn)
}

func (r *bookingStore) GetByUserID(ctx context.Context, userID int64) ([]*entity.Booking, error) {
	return r.filter(
		func(b *entity.Booking) bool { return b.UserID == userID },
		func(a, b *entity.Booking) bool { return byCheckIn(b, a) },
	), nil
}

func (r *bookingStore) GetAll(ctx context.Context) ([]*entity.Booking, error) {
	return r.filter(
		func(b *entity.Booking) bool { return true },
		func(a, b *entity.Booking) bool { return a.CreatedAt.After(b.CreatedAt) },
	), nil
}

func (r *bookingStore) GetActiveByRoomInRange(ctx context.Context, roomID int64, window entity.DateRange) ([]*entity.Booking, error) {
	return r.filter(
		func(b *entity.Booking) bool {
			return b.RoomID == roomID && b.Status == entity.BookingStatusActive && window.Overlaps(b.Stay())
		},
		byCheckIn,
	), nil
}

func (r *bookingStore) GetUpcomingCheckins(ctx context.Context, from, to entity.Date) ([]*entity.Booking, error) {
	return r.filter(
		func(b *entity.Booking) bool {
			return b.Status == entity.BookingStatusActive && !b.CheckIn.Before(from) && !b.CheckIn.After(to)
		},
		byCheckIn,
	), nil
}

func (r *bookingStore) GetActiveByCheckIn(ctx context.Context, day entity.Date) ([]*entity.Booking, error) {
	return r.filter(
		func(b *entity.Booking) bool { return b.Status == entity.BookingStatusActive && b.CheckIn.Equal(day) },
		byCheckIn,
	), nil
}

func (r *bookingStore) GetActiveByCheckOut(ctx context.Context, day entity.Date) ([]*entity.Booking, error) {
	return r.filter(
		func(b *entity.Booking) bool { return b.Status == entity.BookingStatusActive && b.CheckOut.Equal(day) },
		byCheckIn,
	), nil
}

// CompleteExpired locks each candidate row and re-checks it before the update,
// so a booking cancelled concurrently stays cancelled.
func (r *bookingStore) CompleteExpired(ctx context.Context, today entity.Date, at time.Time) (int64, error) {
	candidates := r.filter(
		func(b *entity.Booking) bool { return entity.IsExpired(b, today) },
		byCheckIn,
	)

	var completed int64
	err := r.WithinTx(ctx, func(ctx context.Context) error {
		for _, c := range candidates {
			if err := r.lock(ctx, bookingKey(c.Code)); err != nil {
				return err
			}

			r.mu.Lock()
			current, ok := r.bookings[c.Code]
			if ok && entity.IsExpired(current, today) {
				prev := copyBooking(current)
				next := copyBooking(current)
				next.Status = entity.BookingStatusCompleted
				next.UpdatedAt = at
				r.bookings[c.Code] = next
				onRollback(ctx, func() { r.bookings[prev.Code] = prev })
				completed++
			}
			r.mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return completed, nil
}
