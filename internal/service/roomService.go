package service

import (
	"context"
	"sort"
	"strings"
	"time"

	repository "github.com/ds124wfegd/hotel-booking/internal/database/postgres"
	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CreateRoomRequest represents the data needed to create a room
type CreateRoomRequest struct {
	RoomNumber string          `json:"room_number" binding:"required,min=1,max=20"`
	RoomType   string          `json:"room_type"`
	BasePrice  decimal.Decimal `json:"base_price"`
	MaxGuests  int             `json:"max_guests" binding:"omitempty,min=1,max=20"`
	Floor      int             `json:"floor" binding:"omitempty,min=0,max=200"`
}

type roomService struct {
	tx       repository.TxManager
	roomRepo repository.RoomRepository
	bookings repository.BookingRepository
	oracle   *AvailabilityOracle
}

// NewRoomService creates a new instance of RoomService
func NewRoomService(
	tx repository.TxManager,
	roomRepo repository.RoomRepository,
	bookingRepo repository.BookingRepository,
) RoomService {
	return &roomService{
		tx:       tx,
		roomRepo: roomRepo,
		bookings: bookingRepo,
		oracle:   NewAvailabilityOracle(roomRepo, bookingRepo),
	}
}

func (s *roomService) CreateRoom(ctx context.Context, req *CreateRoomRequest) (*entity.Room, error) {
	if !req.BasePrice.IsPositive() {
		return nil, entity.ErrInvalidPrice
	}
	roomType, err := entity.ParseRoomType(req.RoomType)
	if err != nil {
		return nil, err
	}
	maxGuests := req.MaxGuests
	if maxGuests == 0 {
		maxGuests = 2
	}

	now := time.Now()
	room := &entity.Room{
		RoomNumber: strings.TrimSpace(req.RoomNumber),
		RoomType:   roomType,
		BasePrice:  req.BasePrice.Round(2),
		MaxGuests:  maxGuests,
		Floor:      req.Floor,
		Status:     entity.RoomStatusAvailable,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"room_id": room.ID, "room_number": room.RoomNumber}).Info("Room created")
	return room, nil
}

func (s *roomService) GetRoom(ctx context.Context, id int64) (*entity.Room, error) {
	return s.roomRepo.GetByID(ctx, id)
}

func (s *roomService) GetAllRooms(ctx context.Context) ([]*entity.Room, error) {
	return s.roomRepo.GetAll(ctx)
}

// UpdateRoomStatus changes the operational flag. It does not touch bookings:
// existing reservations survive a room going into maintenance.
func (s *roomService) UpdateRoomStatus(ctx context.Context, id int64, status entity.RoomStatus) (*entity.Room, error) {
	if err := s.roomRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"room_id": id, "status": status}).Info("Room status updated")
	return s.roomRepo.GetByID(ctx, id)
}

func (s *roomService) CheckAvailability(ctx context.Context, roomID int64, stay entity.DateRange, excludeCode string) (*entity.Availability, error) {
	if err := stay.Validate(); err != nil {
		return nil, err
	}

	var availability entity.Availability
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, a, err := s.oracle.CheckAvailability(ctx, roomID, stay, excludeCode)
		availability = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return &availability, nil
}

// GetRoomBookedRanges returns the booked parts of window for a calendar view:
// ACTIVE stays clipped to the window, sorted, with touching or overlapping
// stays merged into one range.
func (s *roomService) GetRoomBookedRanges(ctx context.Context, roomID int64, window entity.DateRange) ([]entity.DateRange, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.roomRepo.GetByID(ctx, roomID); err != nil {
		return nil, err
	}

	bookings, err := s.bookings.GetActiveByRoomInRange(ctx, roomID, window)
	if err != nil {
		return nil, err
	}

	ranges := make([]entity.DateRange, 0, len(bookings))
	for _, b := range bookings {
		ranges = append(ranges, clip(b.Stay(), window))
	}
	return MergeRanges(ranges), nil
}

func clip(r, window entity.DateRange) entity.DateRange {
	if r.Start.Before(window.Start) {
		r.Start = window.Start
	}
	if r.End.After(window.End) {
		r.End = window.End
	}
	return r
}

// MergeRanges sorts ranges by start and merges those that overlap or touch.
func MergeRanges(ranges []entity.DateRange) []entity.DateRange {
	if len(ranges) == 0 {
		return []entity.DateRange{}
	}

	sorted := make([]entity.DateRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	merged := []entity.DateRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
