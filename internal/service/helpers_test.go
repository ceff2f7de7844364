package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ds124wfegd/hotel-booking/internal/database/memory"
	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type sentNotification struct {
	kind   string
	to     entity.Contact
	facts  entity.BookingFacts
	refund decimal.Decimal
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) record(kind string, to entity.Contact, facts entity.BookingFacts, refund decimal.Decimal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{kind: kind, to: to, facts: facts, refund: refund})
	return n.err
}

func (n *recordingNotifier) NotifyBookingCreated(_ context.Context, to entity.Contact, facts entity.BookingFacts) error {
	return n.record("created", to, facts, decimal.Zero)
}

func (n *recordingNotifier) NotifyBookingCancelled(_ context.Context, to entity.Contact, facts entity.BookingFacts, refund decimal.Decimal) error {
	return n.record("cancelled", to, facts, refund)
}

func (n *recordingNotifier) NotifyCheckinReminder(_ context.Context, to entity.Contact, facts entity.BookingFacts) error {
	return n.record("checkin_reminder", to, facts, decimal.Zero)
}

func (n *recordingNotifier) NotifyCheckoutReminder(_ context.Context, to entity.Contact, facts entity.BookingFacts) error {
	return n.record("checkout_reminder", to, facts, decimal.Zero)
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.kind)
	}
	return out
}

func (n *recordingNotifier) last() sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

type fakeTokens struct{}

func (fakeTokens) Issue(userID int64, role string) (string, time.Time, error) {
	return "token-" + role, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

type fixture struct {
	store    *memory.Store
	bookings BookingService
	users    UserService
	rooms    RoomService
	notifier *recordingNotifier

	mu  sync.Mutex
	now time.Time
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) setToday(date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	day, err := entity.ParseDate(date)
	if err != nil {
		panic(err)
	}
	f.now = day.Add(10 * time.Hour)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.NewStore(2 * time.Second),
		notifier: &recordingNotifier{},
	}
	f.setToday("2025-03-01")

	users := NewUserService(f.store.Users(), fakeTokens{}, f.clock).(*userService)
	users.bcryptCost = bcrypt.MinCost
	f.users = users

	f.rooms = NewRoomService(f.store, f.store.Rooms(), f.store.Bookings())
	f.bookings = NewBookingService(BookingServiceDeps{
		Tx:            f.store,
		Bookings:      f.store.Bookings(),
		Rooms:         f.store.Rooms(),
		Users:         f.store.Users(),
		Identities:    f.users,
		Notifier:      f.notifier,
		Clock:         f.clock,
		NotifyTimeout: time.Second,
	})
	return f
}

func (f *fixture) room(t *testing.T, number string, price string) *entity.Room {
	t.Helper()
	room, err := f.rooms.CreateRoom(context.Background(), &CreateRoomRequest{
		RoomNumber: number,
		BasePrice:  decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return room
}

func date(s string) entity.Date {
	d, err := entity.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func guestRequest(email string, roomID int64, checkIn, checkOut string) *CreateBookingRequest {
	return &CreateBookingRequest{
		Email:     email,
		FirstName: "Guest",
		LastName:  "User",
		RoomID:    roomID,
		CheckIn:   date(checkIn),
		CheckOut:  date(checkOut),
	}
}
