package transport

import (
	"net/http"
	"strconv"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/ds124wfegd/hotel-booking/internal/transport/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SuccessResponse представляет успешный ответ
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse{Success: true, Message: message, Data: data})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: msg})
}

// respondError maps the error kind onto an HTTP status. System errors are
// logged and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	kind := entity.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case entity.KindValidation:
		status = http.StatusBadRequest
	case entity.KindConflict:
		status = http.StatusConflict
	case entity.KindNotFound:
		status = http.StatusNotFound
	case entity.KindForbidden:
		status = http.StatusForbidden
	case entity.KindUnauthorized:
		status = http.StatusUnauthorized
	}

	if kind == entity.KindSystem {
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).WithError(err).Error("Request failed with internal error")
	}
	_ = c.Error(err)

	c.JSON(status, ErrorResponse{Success: false, Error: entity.PublicMessage(err)})
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+param)
		return 0, false
	}
	return id, true
}

// canAccessBooking: staff see everything, customers only their own bookings.
// Anonymous callers holding the booking code are let through.
func canAccessBooking(c *gin.Context, b *entity.Booking) bool {
	caller, ok := middleware.CallerFrom(c)
	if !ok || caller.IsStaff() {
		return true
	}
	return b.UserID == caller.UserID
}
