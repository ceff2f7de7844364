package transport

import (
	"net/http"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/ds124wfegd/hotel-booking/internal/service"
	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	roomService service.RoomService
}

func NewRoomHandler(roomService service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req service.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Room created successfully", room)
}

func (h *RoomHandler) GetAllRooms(c *gin.Context) {
	rooms, err := h.roomService.GetAllRooms(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Rooms retrieved successfully", rooms)
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	room, err := h.roomService.GetRoom(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Room retrieved successfully", room)
}

type updateRoomStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *RoomHandler) UpdateRoomStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateRoomStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	status, err := entity.ParseRoomStatus(req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	room, err := h.roomService.UpdateRoomStatus(c.Request.Context(), id, status)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Room status updated successfully", room)
}

// CheckAvailability: GET /rooms/:id/availability?check_in=...&check_out=...[&exclude=BK...]
func (h *RoomHandler) CheckAvailability(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	stay, ok := parseRange(c, "check_in", "check_out")
	if !ok {
		return
	}

	availability, err := h.roomService.CheckAvailability(c.Request.Context(), id, stay, c.Query("exclude"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Availability checked",
		Data:    availability,
		Meta: map[string]interface{}{
			"room_id":        id,
			"check_in_date":  stay.Start,
			"check_out_date": stay.End,
		},
	})
}

// GetBookedRanges: GET /rooms/:id/booked-ranges?from=...&to=...
func (h *RoomHandler) GetBookedRanges(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	window, ok := parseRange(c, "from", "to")
	if !ok {
		return
	}

	ranges, err := h.roomService.GetRoomBookedRanges(c.Request.Context(), id, window)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Booked ranges retrieved successfully", ranges)
}

func parseRange(c *gin.Context, startParam, endParam string) (entity.DateRange, bool) {
	start, err := entity.ParseDate(c.Query(startParam))
	if err != nil {
		badRequest(c, "invalid "+startParam+", want YYYY-MM-DD")
		return entity.DateRange{}, false
	}
	end, err := entity.ParseDate(c.Query(endParam))
	if err != nil {
		badRequest(c, "invalid "+endParam+", want YYYY-MM-DD")
		return entity.DateRange{}, false
	}

	r := entity.NewDateRange(start, end)
	if err := r.Validate(); err != nil {
		respondError(c, err)
		return entity.DateRange{}, false
	}
	return r, true
}
