package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ds124wfegd/hotel-booking/internal/database/memory"
	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/ds124wfegd/hotel-booking/internal/service"
	"github.com/ds124wfegd/hotel-booking/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router   *gin.Engine
	tokens   *token.Manager
	users    service.UserService
	rooms    service.RoomService
	bookings service.BookingService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := memory.NewStore(2 * time.Second)
	clock := func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	tokens := token.NewManager("test-secret", time.Hour)

	users := service.NewUserService(store.Users(), tokens, clock)
	rooms := service.NewRoomService(store, store.Rooms(), store.Bookings())
	bookings := service.NewBookingService(service.BookingServiceDeps{
		Tx:         store,
		Bookings:   store.Bookings(),
		Rooms:      store.Rooms(),
		Users:      store.Users(),
		Identities: users,
		Clock:      clock,
	})

	router := InitRoutes(Handlers{
		Rooms:    NewRoomHandler(rooms),
		Bookings: NewBookingHandler(bookings, 7),
		Users:    NewUserHandler(users),
	}, tokens, 5)

	return &testAPI{router: router, tokens: tokens, users: users, rooms: rooms, bookings: bookings}
}

type apiResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Data    json.RawMessage        `json:"data"`
	Meta    map[string]interface{} `json:"meta"`
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}, bearer string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func (a *testAPI) tokenFor(t *testing.T, userID int64, role entity.UserRole) string {
	t.Helper()
	raw, _, err := a.tokens.Issue(userID, string(role))
	require.NoError(t, err)
	return raw
}

func (a *testAPI) customer(t *testing.T, email string) (*entity.User, string) {
	t.Helper()
	user, err := a.users.Register(context.Background(), &service.RegisterRequest{Email: email, Password: "password123", FirstName: "Test"})
	require.NoError(t, err)
	return user, a.tokenFor(t, user.ID, entity.UserRoleCustomer)
}

func (a *testAPI) room(t *testing.T, number string) *entity.Room {
	t.Helper()
	room, err := a.rooms.CreateRoom(context.Background(), &service.CreateRoomRequest{RoomNumber: number, BasePrice: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	return room
}

func bookingBody(email string, roomID int64, checkIn, checkOut string) map[string]interface{} {
	return map[string]interface{}{
		"email":          email,
		"first_name":     "Guest",
		"room_id":        roomID,
		"check_in_date":  checkIn,
		"check_out_date": checkOut,
	}
}

func decodeBooking(t *testing.T, resp apiResponse) entity.Booking {
	t.Helper()
	var b entity.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &b))
	return b
}

func TestCreateBookingEndpoint(t *testing.T) {
	api := newTestAPI(t)
	room := api.room(t, "101")

	w, resp := api.do(t, http.MethodPost, "/api/v1/bookings", bookingBody("ann@example.com", room.ID, "2025-03-10", "2025-03-13"), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booking := decodeBooking(t, resp)
	assert.Equal(t, entity.BookingStatusActive, booking.Status)
	assert.True(t, decimal.NewFromInt(3000).Equal(booking.TotalPrice))

	w, resp = api.do(t, http.MethodPost, "/api/v1/bookings", bookingBody("bob@example.com", room.ID, "2025-03-12", "2025-03-15"), "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, entity.ErrRoomAlreadyBooked.Msg, resp.Error)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"malformed json", "{", http.StatusBadRequest},
		{"bad date format", bookingBody("c@example.com", room.ID, "10/03/2025", "2025-03-13"), http.StatusBadRequest},
		{"reversed dates", bookingBody("c@example.com", room.ID, "2025-03-20", "2025-03-18"), http.StatusBadRequest},
		{"past check-in", bookingBody("c@example.com", room.ID, "2025-02-01", "2025-02-03"), http.StatusBadRequest},
		{"unknown room", bookingBody("c@example.com", 42, "2025-04-01", "2025-04-03"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := api.do(t, http.MethodPost, "/api/v1/bookings", tt.body, "")
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.False(t, resp.Success)
		})
	}
}

func TestCustomerBooksForThemselves(t *testing.T) {
	api := newTestAPI(t)
	room := api.room(t, "101")
	ann, annToken := api.customer(t, "ann@example.com")
	bob, _ := api.customer(t, "bob@example.com")

	body := bookingBody("", room.ID, "2025-03-10", "2025-03-11")
	body["user_id"] = bob.ID
	w, resp := api.do(t, http.MethodPost, "/api/v1/bookings", body, annToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, ann.ID, decodeBooking(t, resp).UserID)

	// a registered email cannot be used anonymously
	w, resp = api.do(t, http.MethodPost, "/api/v1/bookings", bookingBody("bob@example.com", room.ID, "2025-03-20", "2025-03-21"), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, entity.ErrEmailRegistered.Msg, resp.Error)

	staff := api.tokenFor(t, 900, entity.UserRoleStaff)
	body["check_in_date"], body["check_out_date"] = "2025-03-12", "2025-03-13"
	w, resp = api.do(t, http.MethodPost, "/api/v1/bookings", body, staff)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, bob.ID, decodeBooking(t, resp).UserID)
}

func TestBookingAccessControl(t *testing.T) {
	api := newTestAPI(t)
	room := api.room(t, "101")
	ann, annToken := api.customer(t, "ann@example.com")
	_, bobToken := api.customer(t, "bob@example.com")
	staff := api.tokenFor(t, 900, entity.UserRoleStaff)

	w, resp := api.do(t, http.MethodPost, "/api/v1/bookings", bookingBody("", room.ID, "2025-03-10", "2025-03-12"), annToken)
	require.Equal(t, http.StatusCreated, w.Code)
	code := decodeBooking(t, resp).Code
	path := "/api/v1/bookings/" + code

	tests := []struct {
		name   string
		bearer string
		status int
	}{
		{"anonymous with code", "", http.StatusOK},
		{"owner", annToken, http.StatusOK},
		{"other customer", bobToken, http.StatusForbidden},
		{"staff", staff, http.StatusOK},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := api.do(t, http.MethodGet, path, nil, tt.bearer)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	w, _ = api.do(t, http.MethodGet, "/api/v1/bookings/BKDOESNOTEXIST", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/bookings", ann.ID), nil, annToken)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/bookings", ann.ID), nil, bobToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", ann.ID), nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	w, _ = api.do(t, http.MethodDelete, path, nil, bobToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPatchAndCancelLifecycle(t *testing.T) {
	api := newTestAPI(t)
	room := api.room(t, "101")
	staff := api.tokenFor(t, 900, entity.UserRoleStaff)

	w, resp := api.do(t, http.MethodPost, "/api/v1/bookings", bookingBody("ann@example.com", room.ID, "2025-03-20", "2025-03-22"), "")
	require.Equal(t, http.StatusCreated, w.Code)
	path := "/api/v1/bookings/" + decodeBooking(t, resp).Code

	w, _ = api.do(t, http.MethodPatch, path, map[string]interface{}{"status": "COMPLETED"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code, "only staff may set other statuses")

	w, _ = api.do(t, http.MethodPatch, path, map[string]interface{}{"status": "bogus"}, staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, http.MethodPatch, path, map[string]interface{}{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = api.do(t, http.MethodPatch, path, map[string]interface{}{"special_requests": "extra pillow"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "extra pillow", *decodeBooking(t, resp).SpecialRequests)

	w, resp = api.do(t, http.MethodDelete, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var result service.Cancellation
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.True(t, result.Cancelled)
	assert.False(t, result.AlreadyCancelled)
	assert.True(t, decimal.NewFromInt(2000).Equal(result.Refund))

	w, resp = api.do(t, http.MethodDelete, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.True(t, result.AlreadyCancelled)
	assert.True(t, result.Refund.IsZero())
	assert.Equal(t, "Booking was already cancelled", resp.Message)

	w, resp = api.do(t, http.MethodPatch, path, map[string]interface{}{"special_requests": "late check-in"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, resp.Success)

	w, _ = api.do(t, http.MethodPatch, path, map[string]interface{}{"status": "cancelled"}, "")
	assert.Equal(t, http.StatusOK, w.Code, "writing the terminal status back is accepted")

	w, _ = api.do(t, http.MethodPut, path, map[string]interface{}{"room_id": room.ID, "check_in_date": "2025-03-20", "check_out_date": "2025-03-22"}, staff)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStaffEndpoints(t *testing.T) {
	api := newTestAPI(t)
	room := api.room(t, "101")
	_, annToken := api.customer(t, "ann@example.com")
	staff := api.tokenFor(t, 900, entity.UserRoleStaff)
	admin := api.tokenFor(t, 901, entity.UserRoleAdmin)

	for _, stay := range [][2]string{{"2025-03-03", "2025-03-05"}, {"2025-03-05", "2025-03-06"}, {"2025-03-20", "2025-03-25"}} {
		w, _ := api.do(t, http.MethodPost, "/api/v1/bookings", bookingBody("g"+stay[0]+"@example.com", room.ID, stay[0], stay[1]), "")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w, _ := api.do(t, http.MethodGet, "/api/v1/bookings", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = api.do(t, http.MethodGet, "/api/v1/bookings", nil, annToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := api.do(t, http.MethodGet, "/api/v1/bookings?limit=2", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, resp.Meta["total"])
	assert.Equal(t, true, resp.Meta["has_more"])

	w, resp = api.do(t, http.MethodGet, "/api/v1/bookings/upcoming?days=7", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, resp.Meta["total"])

	w, _ = api.do(t, http.MethodGet, "/api/v1/bookings?status=unknown", nil, staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	newRoom := map[string]interface{}{"room_number": "102", "room_type": "DELUXE", "base_price": "250.00"}
	w, _ = api.do(t, http.MethodPost, "/api/v1/rooms", newRoom, staff)
	assert.Equal(t, http.StatusForbidden, w.Code, "rooms are created by admins only")
	w, _ = api.do(t, http.MethodPost, "/api/v1/rooms", newRoom, admin)
	assert.Equal(t, http.StatusCreated, w.Code)
	w, _ = api.do(t, http.MethodPost, "/api/v1/rooms", newRoom, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = api.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/rooms/%d/status", room.ID), map[string]interface{}{"status": "maintenance"}, staff)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(t, http.MethodPost, "/api/v1/bookings", bookingBody("late@example.com", room.ID, "2025-04-01", "2025-04-02"), "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRoomReadEndpoints(t *testing.T) {
	api := newTestAPI(t)
	room := api.room(t, "101")

	for _, stay := range [][2]string{{"2025-03-05", "2025-03-08"}, {"2025-03-08", "2025-03-10"}} {
		w, _ := api.do(t, http.MethodPost, "/api/v1/bookings", bookingBody("g"+stay[0]+"@example.com", room.ID, stay[0], stay[1]), "")
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, resp := api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/rooms/%d/availability?check_in=2025-03-09&check_out=2025-03-12", room.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var availability entity.Availability
	require.NoError(t, json.Unmarshal(resp.Data, &availability))
	assert.False(t, availability.Available)

	w, resp = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/rooms/%d/booked-ranges?from=2025-03-01&to=2025-03-31", room.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var ranges []entity.DateRange
	require.NoError(t, json.Unmarshal(resp.Data, &ranges))
	require.Len(t, ranges, 1)
	assert.Equal(t, "[2025-03-05, 2025-03-10)", ranges[0].String())

	w, _ = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/rooms/%d/availability?check_in=2025-03-09", room.ID), nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = api.do(t, http.MethodGet, "/api/v1/rooms/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = api.do(t, http.MethodGet, "/api/v1/rooms/77", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = api.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t)

	body := map[string]interface{}{"email": "ann@example.com", "password": "password123", "first_name": "Ann"}
	w, _ := api.do(t, http.MethodPost, "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, _ = api.do(t, http.MethodPost, "/api/v1/auth/register", body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp := api.do(t, http.MethodPost, "/api/v1/auth/login", map[string]interface{}{"email": "ann@example.com", "password": "password123"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string      `json:"access_token"`
		User  entity.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &login))
	assert.NotEmpty(t, login.Token)
	assert.NotContains(t, string(resp.Data), "password_hash")

	w, _ = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", login.User.ID), nil, login.Token)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, http.MethodPost, "/api/v1/auth/login", map[string]interface{}{"email": "ann@example.com", "password": "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRespondErrorHidesSystemDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, entity.NewSystemError("query failed", fmt.Errorf("pq: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), "internal error")
}
