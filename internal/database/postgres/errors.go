package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/lib/pq"
)

// PostgreSQL error codes the repositories react to.
const (
	pqForeignKeyViolation  = "23503"
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

// mapError turns driver errors into domain errors. Unique violations are
// resolved by constraint name; everything unrecognised becomes a system error
// that keeps the raw cause for logging.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}

	var domainErr *entity.Error
	if errors.As(err, &domainErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return entity.ErrLockTimeout.WithCause(fmt.Errorf("%s: %w", op, err))
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			switch pqErr.Constraint {
			case "users_email_key":
				return entity.ErrEmailTaken.WithCause(err)
			case "bookings_pkey":
				return entity.ErrBookingCodeCollision.WithCause(err)
			case "rooms_room_number_key":
				return entity.ErrRoomNumberTaken.WithCause(err)
			}
		case pqForeignKeyViolation:
			switch pqErr.Constraint {
			case "bookings_room_id_fkey":
				return entity.ErrRoomNotFound.WithCause(err)
			case "bookings_user_id_fkey":
				return entity.ErrUserNotFound.WithCause(err)
			}
		case pqLockNotAvailable:
			return entity.ErrLockTimeout.WithCause(err)
		case pqSerializationFailure, pqDeadlockDetected:
			return entity.NewSystemError("transaction conflict", err)
		}
	}

	return entity.ErrDatabase.WithCause(fmt.Errorf("failed to %s: %w", op, err))
}
