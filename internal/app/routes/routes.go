package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/emre/eventhub/internal/app/controllers"
	"github.com/emre/eventhub/internal/app/models"
	"github.com/emre/eventhub/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	eventController *controllers.EventController,
	userController *controllers.UserController,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/refresh", authController.RefreshToken)
	}

	// --- Event read routes ---
	// Readable without a token; a valid token widens visibility to the
	// caller's private events.
	events := v1.Group("/events")
	events.Use(authMiddleware.OptionalJWTAuth())
	{
		events.GET("", eventController.GetAllEvents)
		events.GET("/calendar/:year/:month", eventController.GetCalendar)
		events.GET("/organizer/:id", eventController.GetEventsByOrganizer)
		events.GET("/:id", eventController.GetEventByID)
	}

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.POST("/auth/logout", authController.Logout)

		eventsProtected := authenticated.Group("/events")
		{
			// Creating events requires the organizer role; editing and
			// deleting are ownership-checked in the service layer
			eventsProtected.POST("", authMiddleware.RoleRequired(models.RoleOrganizer), eventController.CreateEvent)
			eventsProtected.PUT("/:id", eventController.UpdateEvent)
			eventsProtected.DELETE("/:id", eventController.DeleteEvent)

			eventsProtected.POST("/:id/join", eventController.JoinEvent)
			eventsProtected.POST("/:id/leave", eventController.LeaveEvent)
			eventsProtected.GET("/:id/attendees", eventController.GetEventAttendees)
		}

		users := authenticated.Group("/users")
		{
			users.GET("/me", userController.GetProfile)
			users.PUT("/me", userController.UpdateProfile)
			users.PUT("/me/password", userController.ChangePassword)
		}
	}
}
