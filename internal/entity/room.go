package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RoomStatus is the coarse operational flag of a room. It says nothing about
// occupancy of a particular date range; that is decided by bookings alone.
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "AVAILABLE"
	RoomStatusOccupied    RoomStatus = "OCCUPIED"
	RoomStatusMaintenance RoomStatus = "MAINTENANCE"
)

func ParseRoomStatus(s string) (RoomStatus, error) {
	switch status := RoomStatus(strings.ToUpper(strings.TrimSpace(s))); status {
	case RoomStatusAvailable, RoomStatusOccupied, RoomStatusMaintenance:
		return status, nil
	}
	return "", ErrInvalidRoomStatus
}

type RoomType string

const (
	RoomTypeEconomy  RoomType = "ECONOMY"
	RoomTypeStandard RoomType = "STANDARD"
	RoomTypeDeluxe   RoomType = "DELUXE"
)

func ParseRoomType(s string) (RoomType, error) {
	switch rt := RoomType(strings.ToUpper(strings.TrimSpace(s))); rt {
	case RoomTypeEconomy, RoomTypeStandard, RoomTypeDeluxe:
		return rt, nil
	case "":
		return RoomTypeStandard, nil
	}
	return "", ErrInvalidRoomType
}

type Room struct {
	ID         int64           `json:"id" db:"id"`
	RoomNumber string          `json:"room_number" db:"room_number"`
	RoomType   RoomType        `json:"room_type" db:"room_type"`
	BasePrice  decimal.Decimal `json:"base_price" db:"base_price"`
	MaxGuests  int             `json:"max_guests" db:"max_guests"`
	Floor      int             `json:"floor" db:"floor"`
	Status     RoomStatus      `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// PriceFor returns the price of staying in the room for the given range.
func (r *Room) PriceFor(stay DateRange) decimal.Decimal {
	return r.BasePrice.Mul(decimal.NewFromInt(int64(stay.Nights())))
}

// Availability is the answer of an availability check.
type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

const (
	ReasonRoomNotAvailable = "room not available"
	ReasonAlreadyBooked    = "already booked"
)
