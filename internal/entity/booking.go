package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "ACTIVE"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// ParseBookingStatus normalizes s into a BookingStatus. It is the only place a
// raw status string is interpreted.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch status := BookingStatus(strings.ToUpper(strings.TrimSpace(s))); status {
	case BookingStatusActive, BookingStatusCompleted, BookingStatusCancelled:
		return status, nil
	}
	return "", ErrInvalidBookingStatus
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

type Booking struct {
	Code            string          `json:"booking_code" db:"booking_code"`
	UserID          int64           `json:"user_id" db:"user_id"`
	RoomID          int64           `json:"room_id" db:"room_id"`
	CheckIn         Date            `json:"check_in_date" db:"check_in_date"`
	CheckOut        Date            `json:"check_out_date" db:"check_out_date"`
	SpecialRequests *string         `json:"special_requests,omitempty" db:"special_requests"`
	Status          BookingStatus   `json:"status" db:"status"`
	TotalPrice      decimal.Decimal `json:"total_price" db:"total_price"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

func (b *Booking) Stay() DateRange {
	return DateRange{Start: b.CheckIn, End: b.CheckOut}
}

func (b *Booking) Nights() int {
	return b.Stay().Nights()
}

// BookingField names a mutable attribute of a booking.
type BookingField string

const (
	FieldRoom            BookingField = "room_id"
	FieldCheckIn         BookingField = "check_in_date"
	FieldCheckOut        BookingField = "check_out_date"
	FieldSpecialRequests BookingField = "special_requests"
	FieldStatus          BookingField = "status"
)

// BookingPatch carries the fields an update names. Nil means "not supplied".
type BookingPatch struct {
	RoomID          *int64         `json:"room_id,omitempty"`
	CheckIn         *Date          `json:"check_in_date,omitempty"`
	CheckOut        *Date          `json:"check_out_date,omitempty"`
	SpecialRequests *string        `json:"special_requests,omitempty"`
	Status          *BookingStatus `json:"status,omitempty"`
}

func (p *BookingPatch) Fields() []BookingField {
	var fields []BookingField
	if p.RoomID != nil {
		fields = append(fields, FieldRoom)
	}
	if p.CheckIn != nil {
		fields = append(fields, FieldCheckIn)
	}
	if p.CheckOut != nil {
		fields = append(fields, FieldCheckOut)
	}
	if p.SpecialRequests != nil {
		fields = append(fields, FieldSpecialRequests)
	}
	if p.Status != nil {
		fields = append(fields, FieldStatus)
	}
	return fields
}

func (p *BookingPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// TouchesStay reports whether the patch can move the booking in time or space,
// which requires a fresh availability check.
func (p *BookingPatch) TouchesStay() bool {
	return p.RoomID != nil || p.CheckIn != nil || p.CheckOut != nil
}

// Apply copies the supplied fields onto b.
func (p *BookingPatch) Apply(b *Booking) {
	if p.RoomID != nil {
		b.RoomID = *p.RoomID
	}
	if p.CheckIn != nil {
		b.CheckIn = *p.CheckIn
	}
	if p.CheckOut != nil {
		b.CheckOut = *p.CheckOut
	}
	if p.SpecialRequests != nil {
		if *p.SpecialRequests == "" {
			b.SpecialRequests = nil
		} else {
			sr := *p.SpecialRequests
			b.SpecialRequests = &sr
		}
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
}
