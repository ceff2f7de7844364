package service

import (
	"context"
	"time"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/shopspring/decimal"
)

// Clock returns the current instant in the hotel's timezone.
type Clock func() time.Time

// CodeGenerator produces booking codes.
type CodeGenerator func() string

// BookingService is the booking orchestrator used by the transport layer and the scheduler.
type BookingService interface {
	// Основные операции
	CreateBooking(ctx context.Context, req *CreateBookingRequest) (*entity.Booking, error)
	GetBooking(ctx context.Context, code string) (*entity.Booking, error)
	UpdateBooking(ctx context.Context, code string, patch *entity.BookingPatch) (*entity.Booking, error)
	ReplaceBooking(ctx context.Context, code string, req *ReplaceBookingRequest) (*entity.Booking, error)
	CancelBooking(ctx context.Context, code string) (*Cancellation, error)

	// Reads. The list operations complete expired bookings before reading.
	ListBookingsForUser(ctx context.Context, userID int64) ([]*entity.Booking, error)
	ListAllBookings(ctx context.Context) ([]*entity.Booking, error)
	ListUpcomingCheckins(ctx context.Context, withinDays int) ([]*entity.Booking, error)

	// Scheduled operations
	SweepExpiredBookings(ctx context.Context) (int64, error)
	SendDailyReminders(ctx context.Context) (int, error)

	// Wait blocks until notifications dispatched so far have been handed off.
	Wait()
}

// RoomService covers the room operations the booking engine depends on.
type RoomService interface {
	CreateRoom(ctx context.Context, req *CreateRoomRequest) (*entity.Room, error)
	GetRoom(ctx context.Context, id int64) (*entity.Room, error)
	GetAllRooms(ctx context.Context) ([]*entity.Room, error)
	UpdateRoomStatus(ctx context.Context, id int64, status entity.RoomStatus) (*entity.Room, error)
	CheckAvailability(ctx context.Context, roomID int64, stay entity.DateRange, excludeCode string) (*entity.Availability, error)
	GetRoomBookedRanges(ctx context.Context, roomID int64, window entity.DateRange) ([]entity.DateRange, error)
}

// UserService owns user identities: guests created by bookings, registration and login.
type UserService interface {
	IdentityResolver
	UpsertIdentity(ctx context.Context, contact entity.Contact, reg *Registration) (*entity.User, error)
	Register(ctx context.Context, req *RegisterRequest) (*entity.User, error)
	Login(ctx context.Context, req *LoginRequest) (*LoginResult, error)
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	EnsureAdmin(ctx context.Context, email, password string) (*entity.User, error)
}

// IdentityResolver resolves who a booking is made for.
type IdentityResolver interface {
	ResolveBookingIdentity(ctx context.Context, userID *int64, contact entity.Contact) (*entity.User, error)
}

// Notifier delivers booking notifications. Implementations may be slow or
// fail; the booking service calls them only after commit and only logs errors.
type Notifier interface {
	NotifyBookingCreated(ctx context.Context, to entity.Contact, facts entity.BookingFacts) error
	NotifyBookingCancelled(ctx context.Context, to entity.Contact, facts entity.BookingFacts, refund decimal.Decimal) error
	NotifyCheckinReminder(ctx context.Context, to entity.Contact, facts entity.BookingFacts) error
	NotifyCheckoutReminder(ctx context.Context, to entity.Contact, facts entity.BookingFacts) error
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID int64, role string) (string, time.Time, error)
}
