package service

import (
	"context"

	repository "github.com/ds124wfegd/hotel-booking/internal/database/postgres"
	"github.com/ds124wfegd/hotel-booking/internal/entity"
)

// AvailabilityOracle decides whether a room is free for a stay.
type AvailabilityOracle struct {
	rooms    repository.RoomRepository
	bookings repository.BookingRepository
}

func NewAvailabilityOracle(rooms repository.RoomRepository, bookings repository.BookingRepository) *AvailabilityOracle {
	return &AvailabilityOracle{rooms: rooms, bookings: bookings}
}

// CheckAvailability locks the room row and then counts ACTIVE bookings that
// overlap stay. It must run inside TxManager.WithinTx: the lock is what makes
// the answer stay true until the caller's insert or update commits.
//
// A room whose operational status is not AVAILABLE is reported unavailable
// without looking at dates. A missing room is an error, not "unavailable".
func (o *AvailabilityOracle) CheckAvailability(ctx context.Context, roomID int64, stay entity.DateRange, excludeCode string) (*entity.Room, entity.Availability, error) {
	room, err := o.rooms.GetByIDForUpdate(ctx, roomID)
	if err != nil {
		return nil, entity.Availability{}, err
	}

	if room.Status != entity.RoomStatusAvailable {
		return room, entity.Availability{Available: false, Reason: entity.ReasonRoomNotAvailable}, nil
	}

	count, err := o.bookings.CountOverlapping(ctx, roomID, stay, excludeCode)
	if err != nil {
		return nil, entity.Availability{}, err
	}
	if count > 0 {
		return room, entity.Availability{Available: false, Reason: entity.ReasonAlreadyBooked}, nil
	}

	return room, entity.Availability{Available: true}, nil
}

// unavailableError converts a negative answer into the error returned to callers.
func unavailableError(a entity.Availability) error {
	if a.Reason == entity.ReasonRoomNotAvailable {
		return entity.ErrRoomNotAvailable
	}
	return entity.ErrRoomAlreadyBooked
}
