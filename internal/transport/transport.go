package transport

import (
	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/ds124wfegd/hotel-booking/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Rooms    *RoomHandler
	Bookings *BookingHandler
	Users    *UserHandler
	Health   *HealthHandler
}

func InitRoutes(h Handlers, tokens middleware.TokenParser, requestTimeout int) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(requestTimeout))

	optionalAuth := middleware.Auth(tokens, false)
	requireAuth := middleware.Auth(tokens, true)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Users.Register)
			auth.POST("/login", h.Users.Login)
		}

		bookings := api.Group("/bookings")
		{
			bookings.POST("", optionalAuth, h.Bookings.CreateBooking)
			bookings.GET("", requireAuth, middleware.RequireStaff(), h.Bookings.GetAllBookings)
			bookings.GET("/upcoming", requireAuth, middleware.RequireStaff(), h.Bookings.GetUpcomingCheckins)

			bookings.GET("/:code", optionalAuth, h.Bookings.GetBooking)
			bookings.PATCH("/:code", optionalAuth, h.Bookings.UpdateBooking)
			bookings.PUT("/:code", optionalAuth, h.Bookings.ReplaceBooking)
			bookings.DELETE("/:code", optionalAuth, h.Bookings.CancelBooking)
		}

		users := api.Group("/users", requireAuth)
		{
			users.GET("/:id", h.Users.GetUser)
			users.GET("/:id/bookings", h.Bookings.GetUserBookings)
		}

		rooms := api.Group("/rooms")
		{
			rooms.GET("", h.Rooms.GetAllRooms)
			rooms.POST("", requireAuth, middleware.RequireRole(entity.UserRoleAdmin), h.Rooms.CreateRoom)
			rooms.GET("/:id", h.Rooms.GetRoom)
			rooms.PATCH("/:id/status", requireAuth, middleware.RequireStaff(), h.Rooms.UpdateRoomStatus)
			rooms.GET("/:id/availability", h.Rooms.CheckAvailability)
			rooms.GET("/:id/booked-ranges", h.Rooms.GetBookedRanges)
		}
	}

	if h.Health == nil {
		h.Health = NewHealthHandler(nil)
	}
	api.GET("/notifications/failed", requireAuth, middleware.RequireStaff(), h.Health.FailedNotifications)
	router.GET("/health", h.Health.Health)

	return router
}
