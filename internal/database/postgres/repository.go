package repository

import (
	"context"
	"time"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
)

// TxManager runs a unit of work in one transaction. Repositories called with
// the context passed to fn take part in that transaction, and any row lock
// they acquire is held until fn returns and the transaction ends.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type BookingRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, booking *entity.Booking) error
	GetByCode(ctx context.Context, code string) (*entity.Booking, error)
	Update(ctx context.Context, booking *entity.Booking) error
	UpdateStatus(ctx context.Context, code string, status entity.BookingStatus, at time.Time) error

	// Locking operations for concurrency control
	GetByCodeForUpdate(ctx context.Context, code string) (*entity.Booking, error)

	// CountOverlapping counts ACTIVE bookings of the room whose stay overlaps
	// the given range. A non-empty excludeCode leaves that booking out.
	CountOverlapping(ctx context.Context, roomID int64, stay entity.DateRange, excludeCode string) (int, error)

	// Query operations
	GetByUserID(ctx context.Context, userID int64) ([]*entity.Booking, error)
	GetAll(ctx context.Context) ([]*entity.Booking, error)
	GetActiveByRoomInRange(ctx context.Context, roomID int64, window entity.DateRange) ([]*entity.Booking, error)
	GetUpcomingCheckins(ctx context.Context, from, to entity.Date) ([]*entity.Booking, error)
	GetActiveByCheckIn(ctx context.Context, day entity.Date) ([]*entity.Booking, error)
	GetActiveByCheckOut(ctx context.Context, day entity.Date) ([]*entity.Booking, error)

	// Expiration operations
	CompleteExpired(ctx context.Context, today entity.Date, at time.Time) (int64, error)
}

type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id int64) (*entity.Room, error)
	GetAll(ctx context.Context) ([]*entity.Room, error)
	UpdateStatus(ctx context.Context, id int64, status entity.RoomStatus) error

	// GetByIDForUpdate locks the room row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id int64) (*entity.Room, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	// UpgradeGuest writes user only while the stored row is still unregistered,
	// returning entity.ErrAlreadyRegistered otherwise.
	UpgradeGuest(ctx context.Context, user *entity.User) error
}
