package entity

import "github.com/shopspring/decimal"

// BookingFacts is the snapshot of a booking handed to notification collaborators
// after the transaction that produced it has committed.
type BookingFacts struct {
	BookingCode     string          `json:"booking_code"`
	GuestName       string          `json:"guest_name"`
	RoomID          int64           `json:"room_id"`
	RoomNumber      string          `json:"room_number"`
	CheckIn         Date            `json:"check_in_date"`
	CheckOut        Date            `json:"check_out_date"`
	Nights          int             `json:"nights"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	SpecialRequests string          `json:"special_requests,omitempty"`
	Status          BookingStatus   `json:"status"`
}

func NewBookingFacts(b *Booking, room *Room, user *User) BookingFacts {
	facts := BookingFacts{
		BookingCode: b.Code,
		RoomID:      b.RoomID,
		CheckIn:     b.CheckIn,
		CheckOut:    b.CheckOut,
		Nights:      b.Nights(),
		TotalPrice:  b.TotalPrice,
		Status:      b.Status,
	}
	if room != nil {
		facts.RoomNumber = room.RoomNumber
	}
	if user != nil {
		facts.GuestName = user.FullName()
	}
	if b.SpecialRequests != nil {
		facts.SpecialRequests = *b.SpecialRequests
	}
	return facts
}
