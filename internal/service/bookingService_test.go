package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookingPricesAndRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "101", "1000")

	first, err := f.bookings.CreateBooking(ctx, guestRequest("ann@example.com", room.ID, "2025-03-10", "2025-03-13"))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusActive, first.Status)
	assert.True(t, decimal.RequireFromString("3000").Equal(first.TotalPrice), first.TotalPrice.String())
	assert.Regexp(t, regexp.MustCompile(`^BK[0-9A-F]{12}$`), first.Code)

	_, err = f.bookings.CreateBooking(ctx, guestRequest("bob@example.com", room.ID, "2025-03-12", "2025-03-15"))
	assert.ErrorIs(t, err, entity.ErrRoomAlreadyBooked)
	assert.Equal(t, entity.KindConflict, entity.KindOf(err))

	// check-out is exclusive, so a stay starting on it does not overlap
	second, err := f.bookings.CreateBooking(ctx, guestRequest("bob@example.com", room.ID, "2025-03-13", "2025-03-15"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2000").Equal(second.TotalPrice))

	f.bookings.Wait()
	assert.Equal(t, []string{"created", "created"}, f.notifier.kinds())
	assert.Equal(t, "bob@example.com", f.notifier.last().to.Email)
	assert.Equal(t, "101", f.notifier.last().facts.RoomNumber)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "101", "100")

	tests := []struct {
		name string
		req  *CreateBookingRequest
		want error
	}{
		{"check-out before check-in", guestRequest("a@example.com", room.ID, "2025-03-10", "2025-03-09"), entity.ErrInvalidDateRange},
		{"zero nights", guestRequest("a@example.com", room.ID, "2025-03-10", "2025-03-10"), entity.ErrInvalidDateRange},
		{"missing dates", &CreateBookingRequest{Email: "a@example.com", RoomID: room.ID}, entity.ErrDatesRequired},
		{"check-in in the past", guestRequest("a@example.com", room.ID, "2025-02-27", "2025-03-03"), entity.ErrCheckInInPast},
		{"no identity", guestRequest("", room.ID, "2025-03-10", "2025-03-11"), entity.ErrIdentityRequired},
		{"unknown room", guestRequest("a@example.com", 999, "2025-03-10", "2025-03-11"), entity.ErrRoomNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.CreateBooking(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// check-in today is allowed
	_, err := f.bookings.CreateBooking(ctx, guestRequest("a@example.com", room.ID, "2025-03-01", "2025-03-02"))
	assert.NoError(t, err)
}

func TestCreateBookingRoomOutOfService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "101", "100")

	_, err := f.rooms.UpdateRoomStatus(ctx, room.ID, entity.RoomStatusMaintenance)
	require.NoError(t, err)

	_, err = f.bookings.CreateBooking(ctx, guestRequest("a@example.com", room.ID, "2025-03-10", "2025-03-11"))
	assert.ErrorIs(t, err, entity.ErrRoomNotAvailable)
}

func TestConcurrentCreateBookingYieldsSingleWinner(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "101", "100")

	const callers = 5
	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		successes int
		conflicts int
		mu        sync.Mutex
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := f.bookings.CreateBooking(context.Background(),
				guestRequest(fmt.Sprintf("guest%d@example.com", i), room.ID, "2025-03-10", "2025-03-13"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case entity.KindOf(err) == entity.KindConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)

	ranges, err := f.rooms.GetRoomBookedRanges(context.Background(), room.ID,
		entity.NewDateRange(date("2025-03-01"), date("2025-04-01")))
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, "[2025-03-10, 2025-03-13)", ranges[0].String())

	all, err := f.bookings.ListAllBookings(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateBookingForRegisteredUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "101", "100")

	user, err := f.users.Register(ctx, &RegisterRequest{Email: "ann@example.com", Password: "password123", FirstName: "Ann"})
	require.NoError(t, err)

	// anonymous booking with a registered email is refused
	_, err = f.bookings.CreateBooking(ctx, guestRequest("ann@example.com", room.ID, "2025-03-10", "2025-03-11"))
	assert.ErrorIs(t, err, entity.ErrEmailRegistered)

	req := guestRequest("", room.ID, "2025-03-10", "2025-03-11")
	req.UserID = &user.ID
	booking, err := f.bookings.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, user.ID, booking.UserID)

	mine, err := f.bookings.ListBookingsForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, booking.Code, mine[0].Code)

	_, err = f.bookings.ListBookingsForUser(ctx, 999)
	assert.ErrorIs(t, err, entity.ErrUserNotFound)
}

func TestUpdateBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "101", "100")
	other := f.room(t, "102", "250")

	booking, err := f.bookings.CreateBooking(ctx, guestRequest("ann@example.com", room.ID, "2025-03-10", "2025-03-12"))
	require.NoError(t, err)
	blocker, err := f.bookings.CreateBooking(ctx, guestRequest("bob@example.com", room.ID, "2025-03-20", "2025-03-25"))
	require.NoError(t, err)

	t.Run("empty patch", func(t *testing.T) {
		_, err := f.bookings.UpdateBooking(ctx, booking.Code, &entity.BookingPatch{})
		assert.ErrorIs(t, err, entity.ErrEmptyPatch)
	})

	t.Run("extend within free nights reprices", func(t *testing.T) {
		checkOut := date("2025-03-14")
		updated, err := f.bookings.UpdateBooking(ctx, booking.Code, &entity.BookingPatch{CheckOut: &checkOut})
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("400").Equal(updated.TotalPrice))
	})

	t.Run("own range does not conflict with itself", func(t *testing.T) {
		note := "high floor"
		updated, err := f.bookings.UpdateBooking(ctx, booking.Code, &entity.BookingPatch{SpecialRequests: &note})
		require.NoError(t, err)
		require.NotNil(t, updated.SpecialRequests)
		assert.Equal(t, "high floor", *updated.SpecialRequests)
	})

	t.Run("moving onto another booking conflicts", func(t *testing.T) {
		checkOut := date("2025-03-21")
		_, err := f.bookings.UpdateBooking(ctx, booking.Code, &entity.BookingPatch{CheckOut: &checkOut})
		assert.ErrorIs(t, err, entity.ErrRoomAlreadyBooked)

		current, err := f.bookings.GetBooking(ctx, booking.Code)
		require.NoError(t, err)
		assert.Equal(t, "2025-03-14", current.CheckOut.String(), "failed update leaves the booking untouched")
	})

	t.Run("replace moves to another room", func(t *testing.T) {
		replaced, err := f.bookings.ReplaceBooking(ctx, booking.Code, &ReplaceBookingRequest{
			RoomID:   other.ID,
			CheckIn:  date("2025-03-20"),
			CheckOut: date("2025-03-22"),
		})
		require.NoError(t, err)
		assert.Equal(t, other.ID, replaced.RoomID)
		assert.True(t, decimal.RequireFromString("500").Equal(replaced.TotalPrice))
		assert.Nil(t, replaced.SpecialRequests)
	})

	t.Run("check-in moved into the past", func(t *testing.T) {
		checkIn := date("2025-02-28")
		_, err := f.bookings.UpdateBooking(ctx, blocker.Code, &entity.BookingPatch{CheckIn: &checkIn})
		assert.ErrorIs(t, err, entity.ErrCheckInInPast)
	})

	_, err = f.bookings.UpdateBooking(ctx, "BKMISSING0000", &entity.BookingPatch{Status: statusPtr(entity.BookingStatusCancelled)})
	assert.ErrorIs(t, err, entity.ErrBookingNotFound)
}

func statusPtr(s entity.BookingStatus) *entity.BookingStatus { return &s }

func TestTerminalBookingAcceptsOnlyStatusEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "101", "100")

	booking, err := f.bookings.CreateBooking(ctx, guestRequest("ann@example.com", room.ID, "2025-03-10", "2025-03-12"))
	require.NoError(t, err)
	_, err = f.bookings.CancelBooking(ctx, booking.Code)
	require.NoError(t, err)

	note := "late arrival"
	_, err = f.bookings.UpdateBooking(ctx, booking.Code, &entity.BookingPatch{SpecialRequests: &note})
	assert.Equal(t, entity.KindForbidden, entity.KindOf(err))

	_, err = f.bookings.ReplaceBooking(ctx, booking.Code, &ReplaceBookingRequest{RoomID: room.ID, CheckIn: date("2025-03-10"), CheckOut: date("2025-03-12")})
	assert.Equal(t, entity.KindForbidden, entity.KindOf(err))

	updated, err := f.bookings.UpdateBooking(ctx, booking.Code, &entity.BookingPatch{Status: statusPtr(entity.BookingStatusCancelled)})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, updated.Status)
	assert.Nil(t, updated.SpecialRequests)

	_, err = f.bookings.UpdateBooking(ctx, booking.Code, &entity.BookingPatch{Status: statusPtr(entity.BookingStatusActive)})
	assert.Equal(t, entity.KindForbidden, entity.KindOf(err), "cancelled is terminal")

	// the freed range can be booked again
	_, err = f.bookings.CreateBooking(ctx, guestRequest("bob@example.com", room.ID, "2025-03-10", "2025-03-12"))
	assert.NoError(t, err)
}

func TestCancelViaPatchNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "101", "100")

	booking, err := f.bookings.CreateBooking(ctx, guestRequest("ann@example.com", room.ID, "2025-03-20", "2025-03-22"))
	require.NoError(t, err)

	_, err = f.bookings.UpdateBooking(ctx, booking.Code, &entity.BookingPatch{Status: statusPtr(entity.BookingStatusCancelled)})
	require.NoError(t, err)

	f.bookings.Wait()
	assert.Equal(t, []string{"created", "cancelled"}, f.notifier.kinds())
	assert.True(t, decimal.RequireFromString("200").Equal(f.notifier.last().refund))
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "101", "100")

	booking, err := f.bookings.CreateBooking(ctx, guestRequest("ann@example.com", room.ID, "2025-03-10", "2025-03-14"))
	require.NoError(t, err)

	// six days before check-in falls in the half refund tier
	f.setToday("2025-03-04")
	result, err := f.bookings.CancelBooking(ctx, booking.Code)
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.False(t, result.AlreadyCancelled)
	assert.True(t, decimal.RequireFromString("200").Equal(result.Refund), result.Refund.String())

	again, err := f.bookings.CancelBooking(ctx, booking.Code)
	require.NoError(t, err, "cancel is idempotent")
	assert.True(t, again.AlreadyCancelled)
	assert.True(t, again.Refund.IsZero())

	stored, err := f.bookings.GetBooking(ctx, booking.Code)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, stored.Status)

	f.bookings.Wait()
	assert.Equal(t, []string{"created", "cancelled"}, f.notifier.kinds(), "second cancel does not notify")

	_, err = f.bookings.CancelBooking(ctx, "BKUNKNOWN")
	assert.ErrorIs(t, err, entity.ErrBookingNotFound)
}

func TestCancelCompletedBookingIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "101", "100")

	booking, err := f.bookings.CreateBooking(ctx, guestRequest("ann@example.com", room.ID, "2025-03-02", "2025-03-04"))
	require.NoError(t, err)

	f.setToday("2025-03-10")
	count, err := f.bookings.SweepExpiredBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = f.bookings.CancelBooking(ctx, booking.Code)
	assert.Equal(t, entity.KindForbidden, entity.KindOf(err))
}

func TestNotificationFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")
	room := f.room(t, "101", "100")

	_, err := f.bookings.CreateBooking(context.Background(), guestRequest("ann@example.com", room.ID, "2025-03-10", "2025-03-11"))
	assert.NoError(t, err)
	f.bookings.Wait()
	assert.Len(t, f.notifier.kinds(), 1)
}

func TestSweepCompletesOnlyExpiredBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "101", "100")

	past, err := f.bookings.CreateBooking(ctx, guestRequest("ann@example.com", room.ID, "2025-03-01", "2025-03-03"))
	require.NoError(t, err)
	endsToday, err := f.bookings.CreateBooking(ctx, guestRequest("bob@example.com", room.ID, "2025-03-03", "2025-03-05"))
	require.NoError(t, err)
	future, err := f.bookings.CreateBooking(ctx, guestRequest("cid@example.com", room.ID, "2025-03-10", "2025-03-12"))
	require.NoError(t, err)

	f.setToday("2025-03-05")
	count, err := f.bookings.SweepExpiredBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := f.bookings.GetBooking(ctx, past.Code)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCompleted, got.Status)
	assert.True(t, got.UpdatedAt.After(past.UpdatedAt))

	for _, code := range []string{endsToday.Code, future.Code} {
		got, err := f.bookings.GetBooking(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusActive, got.Status, code)
	}

	again, err := f.bookings.SweepExpiredBookings(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestListsSweepBeforeReading(t *testing.T) {
	lists := map[string]func(f *fixture, b *entity.Booking) ([]*entity.Booking, error){
		"all bookings": func(f *fixture, _ *entity.Booking) ([]*entity.Booking, error) {
			return f.bookings.ListAllBookings(context.Background())
		},
		"bookings for user": func(f *fixture, b *entity.Booking) ([]*entity.Booking, error) {
			return f.bookings.ListBookingsForUser(context.Background(), b.UserID)
		},
	}

	for name, list := range lists {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			room := f.room(t, "101", "100")

			booking, err := f.bookings.CreateBooking(context.Background(), guestRequest("ann@example.com", room.ID, "2025-03-01", "2025-03-02"))
			require.NoError(t, err)
			require.Equal(t, entity.BookingStatusActive, booking.Status)

			f.setToday("2025-03-03")
			got, err := list(f, booking)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, booking.Code, got[0].Code)
			assert.Equal(t, entity.BookingStatusCompleted, got[0].Status)
		})
	}
}

func TestListUpcomingCheckins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "101", "100")

	soon, err := f.bookings.CreateBooking(ctx, guestRequest("a@example.com", room.ID, "2025-03-03", "2025-03-04"))
	require.NoError(t, err)
	_, err = f.bookings.CreateBooking(ctx, guestRequest("b@example.com", room.ID, "2025-03-20", "2025-03-21"))
	require.NoError(t, err)

	upcoming, err := f.bookings.ListUpcomingCheckins(ctx, 7)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, soon.Code, upcoming[0].Code)

	_, err = f.bookings.ListUpcomingCheckins(ctx, 10000)
	assert.Equal(t, entity.KindValidation, entity.KindOf(err))
}

func TestSendDailyReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "101", "100")
	other := f.room(t, "102", "100")

	_, err := f.bookings.CreateBooking(ctx, guestRequest("in@example.com", room.ID, "2025-03-02", "2025-03-05"))
	require.NoError(t, err)
	_, err = f.bookings.CreateBooking(ctx, guestRequest("out@example.com", other.ID, "2025-03-01", "2025-03-02"))
	require.NoError(t, err)
	cancelled, err := f.bookings.CreateBooking(ctx, guestRequest("gone@example.com", other.ID, "2025-03-02", "2025-03-03"))
	require.NoError(t, err)
	_, err = f.bookings.CancelBooking(ctx, cancelled.Code)
	require.NoError(t, err)
	f.bookings.Wait()

	sent, err := f.bookings.SendDailyReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	kinds := f.notifier.kinds()
	assert.Contains(t, kinds, "checkin_reminder")
	assert.Contains(t, kinds, "checkout_reminder")
}

func TestGenerateBookingCodeIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		code := GenerateBookingCode()
		require.Len(t, code, 14)
		_, dup := seen[code]
		require.False(t, dup)
		seen[code] = struct{}{}
	}
}

func TestLockTimeoutIsRetryable(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "101", "100")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = f.store.WithinTx(context.Background(), func(ctx context.Context) error {
			if _, err := f.store.Rooms().GetByIDForUpdate(ctx, room.ID); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	_, err := f.bookings.CreateBooking(ctx, guestRequest("ann@example.com", room.ID, "2025-03-10", "2025-03-11"))
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrLockTimeout)
	assert.True(t, entity.IsRetryable(err))
}
