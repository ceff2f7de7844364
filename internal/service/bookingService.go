package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	repository "github.com/ds124wfegd/hotel-booking/internal/database/postgres"
	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultUpcomingDays  = 7
	maxUpcomingDays      = 365
	defaultNotifyTimeout = 10 * time.Second
)

// CreateBookingRequest is the input of CreateBooking. Either UserID or Email
// identifies the guest; name and phone are only used for new guests.
type CreateBookingRequest struct {
	UserID          *int64      `json:"user_id"`
	Email           string      `json:"email"`
	FirstName       string      `json:"first_name"`
	LastName        string      `json:"last_name"`
	Phone           string      `json:"phone"`
	RoomID          int64       `json:"room_id" binding:"required,min=1"`
	CheckIn         entity.Date `json:"check_in_date"`
	CheckOut        entity.Date `json:"check_out_date"`
	SpecialRequests string      `json:"special_requests" binding:"max=1000"`
}

func (r *CreateBookingRequest) contact() entity.Contact {
	return entity.Contact{
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
	}
}

// ReplaceBookingRequest is a full update: every mutable field is overwritten.
type ReplaceBookingRequest struct {
	RoomID          int64       `json:"room_id" binding:"required,min=1"`
	CheckIn         entity.Date `json:"check_in_date"`
	CheckOut        entity.Date `json:"check_out_date"`
	SpecialRequests string      `json:"special_requests" binding:"max=1000"`
}

// Cancellation is the outcome of CancelBooking.
type Cancellation struct {
	BookingCode      string          `json:"booking_code"`
	Cancelled        bool            `json:"cancelled"`
	AlreadyCancelled bool            `json:"already_cancelled"`
	Refund           decimal.Decimal `json:"refund_amount"`
}

// BookingServiceDeps groups the collaborators of the booking service.
type BookingServiceDeps struct {
	Tx         repository.TxManager
	Bookings   repository.BookingRepository
	Rooms      repository.RoomRepository
	Users      repository.UserRepository
	Identities IdentityResolver
	Notifier   Notifier

	Clock         Clock
	Codes         CodeGenerator
	Refunds       RefundPolicy
	NotifyTimeout time.Duration
}

type bookingService struct {
	tx         repository.TxManager
	bookings   repository.BookingRepository
	rooms      repository.RoomRepository
	users      repository.UserRepository
	identities IdentityResolver
	notifier   Notifier

	oracle  *AvailabilityOracle
	sweeper *ExpirySweeper
	refunds RefundPolicy

	clock         Clock
	codes         CodeGenerator
	notifyTimeout time.Duration

	// tracks notification goroutines so shutdown can wait for them
	pending sync.WaitGroup
}

// NewBookingService создает новый экземпляр BookingService
func NewBookingService(deps BookingServiceDeps) BookingService {
	s := &bookingService{
		tx:            deps.Tx,
		bookings:      deps.Bookings,
		rooms:         deps.Rooms,
		users:         deps.Users,
		identities:    deps.Identities,
		notifier:      deps.Notifier,
		refunds:       deps.Refunds,
		clock:         deps.Clock,
		codes:         deps.Codes,
		notifyTimeout: deps.NotifyTimeout,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.codes == nil {
		s.codes = GenerateBookingCode
	}
	if s.refunds.HalfRefundRatio.IsZero() {
		s.refunds = DefaultRefundPolicy()
	}
	if s.notifyTimeout <= 0 {
		s.notifyTimeout = defaultNotifyTimeout
	}
	s.oracle = NewAvailabilityOracle(deps.Rooms, deps.Bookings)
	s.sweeper = NewExpirySweeper(deps.Bookings, s.clock)
	return s
}

// GenerateBookingCode returns a random code such as BK3F9A0C21D47E.
func GenerateBookingCode() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "BK" + id[:12]
}

func (s *bookingService) today() entity.Date {
	return entity.DateOf(s.clock())
}

// CreateBooking validates dates, resolves the guest, then reserves the room in
// one transaction holding the room lock. Notification happens after commit.
func (s *bookingService) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*entity.Booking, error) {
	stay := entity.NewDateRange(req.CheckIn, req.CheckOut)
	if err := stay.Validate(); err != nil {
		return nil, err
	}
	if stay.Start.Before(s.today()) {
		return nil, entity.ErrCheckInInPast
	}

	user, err := s.identities.ResolveBookingIdentity(ctx, req.UserID, req.contact())
	if err != nil {
		return nil, err
	}

	var (
		booking *entity.Booking
		room    *entity.Room
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var availability entity.Availability
		room, availability, err = s.oracle.CheckAvailability(ctx, req.RoomID, stay, "")
		if err != nil {
			return err
		}
		if !availability.Available {
			return unavailableError(availability)
		}

		now := s.clock()
		booking = &entity.Booking{
			Code:       s.codes(),
			UserID:     user.ID,
			RoomID:     room.ID,
			CheckIn:    stay.Start,
			CheckOut:   stay.End,
			Status:     entity.BookingStatusActive,
			TotalPrice: room.PriceFor(stay),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if sr := strings.TrimSpace(req.SpecialRequests); sr != "" {
			booking.SpecialRequests = &sr
		}
		return s.bookings.Create(ctx, booking)
	})
	if err != nil {
		s.logFailure(err, "create booking", logrus.Fields{"room_id": req.RoomID, "user_id": user.ID})
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_code": booking.Code,
		"room_id":      booking.RoomID,
		"user_id":      booking.UserID,
		"check_in":     booking.CheckIn.String(),
		"check_out":    booking.CheckOut.String(),
	}).Info("Booking created")

	facts := entity.NewBookingFacts(booking, room, user)
	contact := contactOf(user)
	s.dispatch("booking_created", booking.Code, func(ctx context.Context) error {
		return s.notifier.NotifyBookingCreated(ctx, contact, facts)
	})

	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, code string) (*entity.Booking, error) {
	return s.bookings.GetByCode(ctx, strings.TrimSpace(code))
}

// UpdateBooking applies a partial update. The booking row is locked first, the
// terminal-state guard runs before anything is mutated, and a change of room
// or dates is re-checked against other bookings with the target room locked.
func (s *bookingService) UpdateBooking(ctx context.Context, code string, patch *entity.BookingPatch) (*entity.Booking, error) {
	if patch == nil || patch.IsEmpty() {
		return nil, entity.ErrEmptyPatch
	}

	var (
		updated   *entity.Booking
		cancelled bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.bookings.GetByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}

		if err := entity.AssertMutable(current, patch.Fields()); err != nil {
			return err
		}

		today := s.today()
		if patch.Status != nil {
			if err := entity.CheckStatusEdit(current, *patch.Status, today); err != nil {
				return err
			}
		}

		// a status written back unchanged is accepted as a no-op
		if isStatusOnly(patch) && *patch.Status == current.Status {
			updated = current
			return nil
		}

		next := *current
		patch.Apply(&next)

		if patch.TouchesStay() {
			stay := next.Stay()
			if err := stay.Validate(); err != nil {
				return err
			}
			if patch.CheckIn != nil && !next.CheckIn.Equal(current.CheckIn) && next.CheckIn.Before(today) {
				return entity.ErrCheckInInPast
			}
			if next.Status == entity.BookingStatusActive {
				room, availability, err := s.oracle.CheckAvailability(ctx, next.RoomID, stay, current.Code)
				if err != nil {
					return err
				}
				if !availability.Available {
					return unavailableError(availability)
				}
				next.TotalPrice = room.PriceFor(stay)
			}
		}

		next.UpdatedAt = s.clock()
		if err := s.bookings.Update(ctx, &next); err != nil {
			return err
		}
		cancelled = current.Status == entity.BookingStatusActive && next.Status == entity.BookingStatusCancelled
		updated = &next
		return nil
	})
	if err != nil {
		s.logFailure(err, "update booking", logrus.Fields{"booking_code": code})
		return nil, err
	}

	if cancelled {
		s.notifyCancelled(updated)
	}
	return updated, nil
}

// ReplaceBooking overwrites room, dates and special requests. On a finished
// booking it is always rejected because it names more than the status.
func (s *bookingService) ReplaceBooking(ctx context.Context, code string, req *ReplaceBookingRequest) (*entity.Booking, error) {
	roomID := req.RoomID
	checkIn := req.CheckIn
	checkOut := req.CheckOut
	specialRequests := strings.TrimSpace(req.SpecialRequests)

	return s.UpdateBooking(ctx, code, &entity.BookingPatch{
		RoomID:          &roomID,
		CheckIn:         &checkIn,
		CheckOut:        &checkOut,
		SpecialRequests: &specialRequests,
	})
}

// CancelBooking moves an ACTIVE booking to CANCELLED. Cancelling a booking that
// is already cancelled succeeds without changing anything. The refund is
// computed for the response and for the notification; it is never executed.
func (s *bookingService) CancelBooking(ctx context.Context, code string) (*Cancellation, error) {
	var (
		booking *entity.Booking
		already bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.bookings.GetByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}

		switch current.Status {
		case entity.BookingStatusCancelled:
			already = true
			booking = current
			return nil
		case entity.BookingStatusCompleted:
			return entity.NewForbiddenError("booking %s is already completed and cannot be cancelled", current.Code)
		}

		now := s.clock()
		if err := s.bookings.UpdateStatus(ctx, current.Code, entity.BookingStatusCancelled, now); err != nil {
			return err
		}
		current.Status = entity.BookingStatusCancelled
		current.UpdatedAt = now
		booking = current
		return nil
	})
	if err != nil {
		s.logFailure(err, "cancel booking", logrus.Fields{"booking_code": code})
		return nil, err
	}

	result := &Cancellation{BookingCode: booking.Code, Cancelled: true, AlreadyCancelled: already, Refund: decimal.Zero}
	if already {
		return result, nil
	}

	result.Refund = s.refunds.Calculate(booking.CheckIn, s.today(), booking.TotalPrice)
	logrus.WithFields(logrus.Fields{
		"booking_code": booking.Code,
		"refund":       result.Refund.StringFixed(2),
	}).Info("Booking cancelled")

	s.notifyCancelled(booking)
	return result, nil
}

func (s *bookingService) ListBookingsForUser(ctx context.Context, userID int64) ([]*entity.Booking, error) {
	s.sweepBeforeRead(ctx)

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.bookings.GetByUserID(ctx, userID)
}

func (s *bookingService) ListAllBookings(ctx context.Context) ([]*entity.Booking, error) {
	s.sweepBeforeRead(ctx)
	return s.bookings.GetAll(ctx)
}

// ListUpcomingCheckins returns ACTIVE bookings checking in between today and
// today+withinDays inclusive, earliest first.
func (s *bookingService) ListUpcomingCheckins(ctx context.Context, withinDays int) ([]*entity.Booking, error) {
	if withinDays <= 0 {
		withinDays = defaultUpcomingDays
	}
	if withinDays > maxUpcomingDays {
		return nil, entity.NewValidationError("days must not exceed %d", maxUpcomingDays)
	}
	today := s.today()
	return s.bookings.GetUpcomingCheckins(ctx, today, today.AddDays(withinDays))
}

func (s *bookingService) SweepExpiredBookings(ctx context.Context) (int64, error) {
	count, err := s.sweeper.Sweep(ctx)
	if err != nil {
		logrus.WithError(err).Error("Expired bookings sweep failed")
		return 0, err
	}
	return count, nil
}

// sweepBeforeRead keeps stale ACTIVE statuses out of list responses. A failure
// is logged and the read goes on; the scheduled sweep will catch up.
func (s *bookingService) sweepBeforeRead(ctx context.Context) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		logrus.WithError(err).Warn("Lazy sweep before read failed")
	}
}

// SendDailyReminders notifies guests who check in or check out tomorrow.
// It returns the number of reminders handed to the notifier successfully.
func (s *bookingService) SendDailyReminders(ctx context.Context) (int, error) {
	if s.notifier == nil {
		return 0, nil
	}
	tomorrow := s.today().AddDays(1)

	checkins, err := s.bookings.GetActiveByCheckIn(ctx, tomorrow)
	if err != nil {
		return 0, err
	}
	checkouts, err := s.bookings.GetActiveByCheckOut(ctx, tomorrow)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, b := range checkins {
		if s.remind(ctx, b, "checkin_reminder", s.notifier.NotifyCheckinReminder) {
			sent++
		}
	}
	for _, b := range checkouts {
		if s.remind(ctx, b, "checkout_reminder", s.notifier.NotifyCheckoutReminder) {
			sent++
		}
	}

	logrus.WithFields(logrus.Fields{
		"checkins":  len(checkins),
		"checkouts": len(checkouts),
		"sent":      sent,
	}).Info("Daily reminders processed")
	return sent, nil
}

func (s *bookingService) remind(ctx context.Context, b *entity.Booking, kind string,
	send func(context.Context, entity.Contact, entity.BookingFacts) error) bool {
	user, room, err := s.loadParties(ctx, b)
	if err != nil {
		logrus.WithError(err).WithField("booking_code", b.Code).Errorf("Failed to load %s recipient", kind)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := send(ctx, contactOf(user), entity.NewBookingFacts(b, room, user)); err != nil {
		logrus.WithError(err).WithField("booking_code", b.Code).Errorf("Failed to send %s", kind)
		return false
	}
	return true
}

func (s *bookingService) notifyCancelled(b *entity.Booking) {
	refund := s.refunds.Calculate(b.CheckIn, s.today(), b.TotalPrice)
	booking := *b
	s.dispatch("booking_cancelled", b.Code, func(ctx context.Context) error {
		user, room, err := s.loadParties(ctx, &booking)
		if err != nil {
			return err
		}
		return s.notifier.NotifyBookingCancelled(ctx, contactOf(user), entity.NewBookingFacts(&booking, room, user), refund)
	})
}

// dispatch runs send in the background with its own deadline. Errors are
// logged and never reach the caller of the booking operation.
func (s *bookingService) dispatch(kind, code string, send func(ctx context.Context) error) {
	if s.notifier == nil {
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"booking_code": code,
				"notification": kind,
			}).Error("Failed to dispatch notification")
		}
	}()
}

// Wait blocks until background notifications started so far have finished.
func (s *bookingService) Wait() {
	s.pending.Wait()
}

func (s *bookingService) loadParties(ctx context.Context, b *entity.Booking) (*entity.User, *entity.Room, error) {
	user, err := s.users.GetByID(ctx, b.UserID)
	if err != nil {
		return nil, nil, err
	}
	room, err := s.rooms.GetByID(ctx, b.RoomID)
	if err != nil && !errors.Is(err, entity.ErrRoomNotFound) {
		return nil, nil, err
	}
	return user, room, nil
}

func (s *bookingService) logFailure(err error, op string, fields logrus.Fields) {
	entry := logrus.WithError(err).WithFields(fields)
	if entity.KindOf(err) == entity.KindSystem {
		entry.Errorf("Failed to %s", op)
		return
	}
	entry.Debugf("Rejected %s: %s", op, entity.KindOf(err))
}

func isStatusOnly(p *entity.BookingPatch) bool {
	fields := p.Fields()
	return len(fields) == 1 && fields[0] == entity.FieldStatus
}

func contactOf(u *entity.User) entity.Contact {
	return entity.Contact{
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}
