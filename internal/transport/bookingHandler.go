package transport

import (
	"net/http"
	"strconv"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/ds124wfegd/hotel-booking/internal/service"
	"github.com/ds124wfegd/hotel-booking/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService service.BookingService
	upcomingDays   int
}

func NewBookingHandler(bookingService service.BookingService, upcomingDays int) *BookingHandler {
	return &BookingHandler{bookingService: bookingService, upcomingDays: upcomingDays}
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	// customers always book for themselves; staff may book on behalf of a user
	caller, ok := middleware.CallerFrom(c)
	switch {
	case !ok:
		req.UserID = nil
	case !caller.IsStaff() || req.UserID == nil:
		req.UserID = &caller.UserID
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Booking created successfully", booking)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, ok := h.loadAccessible(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, "Booking retrieved successfully", booking)
}

func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	var patch entity.BookingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if patch.Status != nil {
		status, err := entity.ParseBookingStatus(string(*patch.Status))
		if err != nil {
			respondError(c, err)
			return
		}
		patch.Status = &status

		caller, ok := middleware.CallerFrom(c)
		if status != entity.BookingStatusCancelled && !(ok && caller.IsStaff()) {
			respondError(c, entity.NewForbiddenError("only staff may set status %s", status))
			return
		}
	}

	if _, ok := h.loadAccessible(c); !ok {
		return
	}

	booking, err := h.bookingService.UpdateBooking(c.Request.Context(), c.Param("code"), &patch)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Booking updated successfully", booking)
}

func (h *BookingHandler) ReplaceBooking(c *gin.Context) {
	var req service.ReplaceBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if _, ok := h.loadAccessible(c); !ok {
		return
	}

	booking, err := h.bookingService.ReplaceBooking(c.Request.Context(), c.Param("code"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Booking updated successfully", booking)
}

// CancelBooking is idempotent: cancelling a cancelled booking succeeds again
// with already_cancelled set and a zero refund.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	if _, ok := h.loadAccessible(c); !ok {
		return
	}

	result, err := h.bookingService.CancelBooking(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Booking cancelled successfully"
	if result.AlreadyCancelled {
		message = "Booking was already cancelled"
	}
	respond(c, http.StatusOK, message, result)
}

func (h *BookingHandler) GetAllBookings(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	var statusFilter entity.BookingStatus
	if raw := c.Query("status"); raw != "" {
		statusFilter, err = entity.ParseBookingStatus(raw)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	bookings, err := h.bookingService.ListAllBookings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	if statusFilter != "" {
		filtered := make([]*entity.Booking, 0, len(bookings))
		for _, b := range bookings {
			if b.Status == statusFilter {
				filtered = append(filtered, b)
			}
		}
		bookings = filtered
	}

	start := offset
	if start > len(bookings) {
		start = len(bookings)
	}
	end := start + limit
	if end > len(bookings) {
		end = len(bookings)
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Bookings retrieved successfully",
		Data:    bookings[start:end],
		Meta: map[string]interface{}{
			"total":    len(bookings),
			"limit":    limit,
			"offset":   offset,
			"has_more": end < len(bookings),
		},
	})
}

func (h *BookingHandler) GetUpcomingCheckins(c *gin.Context) {
	days := h.upcomingDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "days must be a positive integer")
			return
		}
		days = n
	}

	bookings, err := h.bookingService.ListUpcomingCheckins(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Upcoming check-ins retrieved successfully",
		Data:    bookings,
		Meta:    map[string]interface{}{"days": days, "total": len(bookings)},
	})
}

func (h *BookingHandler) GetUserBookings(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	caller, _ := middleware.CallerFrom(c)
	if !caller.IsStaff() && caller.UserID != userID {
		respondError(c, entity.ErrForbidden)
		return
	}

	bookings, err := h.bookingService.ListBookingsForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Bookings retrieved successfully", bookings)
}

// loadAccessible fetches the booking named by :code and checks the caller may
// see it. On failure the response is already written.
func (h *BookingHandler) loadAccessible(c *gin.Context) (*entity.Booking, bool) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !canAccessBooking(c, booking) {
		respondError(c, entity.ErrForbidden)
		return nil, false
	}
	return booking, true
}
