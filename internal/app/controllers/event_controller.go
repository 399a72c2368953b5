package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/emre/eventhub/internal/app/models/dto"
	"github.com/emre/eventhub/internal/app/services"
	"github.com/emre/eventhub/internal/middleware"
)

// EventController handles event related operations
type EventController struct {
	eventService services.EventService
	logger       zerolog.Logger
}

// NewEventController creates a new EventController
func NewEventController(eventService services.EventService, logger zerolog.Logger) *EventController {
	return &EventController{
		eventService: eventService,
		logger:       logger,
	}
}

// viewerID resolves the authenticated user, 0 for anonymous callers
func viewerID(ctx *gin.Context) int64 {
	id, ok := middleware.GetUserID(ctx)
	if !ok {
		return 0
	}
	return id
}

func parseIDParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid "+name+" parameter")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// GetAllEvents lists events
// @Summary List events
// @Description Returns a page of events visible to the caller. Private events only appear for their organizer and attendees. Category, free-text search, organizer and exact-day filters compose.
// @Tags events
// @Produce json
// @Param category query string false "Event category"
// @Param search query string false "Free text over title and description"
// @Param organizerId query int false "Filter by organizer"
// @Param date query string false "Exact day (YYYY-MM-DD)"
// @Param page query int false "Page number (1-based)" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.EventListResponse} "Events"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter parameters"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /events [get]
func (c *EventController) GetAllEvents(ctx *gin.Context) {
	var filter dto.EventFilterRequest
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(middleware.FormatValidationErrors(err)))
		return
	}

	if dateStr := ctx.Query("date"); dateStr != "" {
		day, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "date must be in YYYY-MM-DD format")
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail.WithField("date")))
			return
		}
		filter.Day = &day
	}

	events, err := c.eventService.GetAllEvents(ctx.Request.Context(), viewerID(ctx), &filter)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list events")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(events))
}

// GetEventByID returns a single event
// @Summary Get an event
// @Description Returns one event with its freshly derived status. Private events are only found by their organizer and attendees; the full roster is included only for the organizer.
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} dto.APIResponse{data=dto.EventDetailResponse} "Event"
// @Failure 400 {object} dto.ErrorResponse "Invalid event ID"
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /events/{id} [get]
func (c *EventController) GetEventByID(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	event, err := c.eventService.GetEventByID(ctx.Request.Context(), id, viewerID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(event))
}

// CreateEvent creates a new event
// @Summary Create an event
// @Description Creates an event owned by the authenticated organizer. Accepts a multipart form so an optional image can be attached.
// @Tags events
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param location formData string true "Location"
// @Param locationType formData string true "physical or online"
// @Param category formData string true "conference, workshop, seminar, networking or other"
// @Param date formData string true "Event day (YYYY-MM-DD)"
// @Param time formData string true "Start time (HH:MM, 24h)"
// @Param maxAttendees formData int false "Attendee cap, omitted means unlimited"
// @Param price formData string false "Price as a decimal string, defaults to 0"
// @Param isPrivate formData bool false "Private events are visible only to organizer and attendees"
// @Param registrationDeadline formData string false "Last day to register (YYYY-MM-DD)"
// @Param image formData file false "Event image"
// @Success 201 {object} dto.APIResponse{data=dto.EventResponse} "Created event"
// @Failure 400 {object} dto.ErrorResponse "Invalid event data"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an organizer"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /events [post]
func (c *EventController) CreateEvent(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return
	}

	var req dto.CreateEventRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(middleware.FormatValidationErrors(err)))
		return
	}

	image, err := ctx.FormFile("image")
	if err != nil && err != http.ErrMissingFile {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid image upload")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	event, err := c.eventService.CreateEvent(ctx.Request.Context(), userID, &req, image)
	if err != nil {
		c.logger.Error().Err(err).Int64("userID", userID).Msg("Failed to create event")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("eventID", event.ID).
		Int64("organizerID", userID).
		Msg("Event created")

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(event))
}

// UpdateEvent updates an existing event
// @Summary Update an event
// @Description Updates an event. Only the creating organizer may; the organizer itself never changes. Setting cancelled is permanent. A new image replaces and deletes the old one.
// @Tags events
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Event ID"
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param location formData string true "Location"
// @Param locationType formData string true "physical or online"
// @Param category formData string true "conference, workshop, seminar, networking or other"
// @Param date formData string true "Event day (YYYY-MM-DD)"
// @Param time formData string true "Start time (HH:MM, 24h)"
// @Param maxAttendees formData int false "Attendee cap"
// @Param price formData string false "Price as a decimal string"
// @Param isPrivate formData bool false "Visibility flag"
// @Param registrationDeadline formData string false "Last day to register (YYYY-MM-DD)"
// @Param cancelled formData bool false "Cancel the event (sticky)"
// @Param image formData file false "Replacement image"
// @Success 200 {object} dto.APIResponse{data=dto.EventResponse} "Updated event"
// @Failure 400 {object} dto.ErrorResponse "Invalid event data"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Failure 403 {object} dto.ErrorResponse "Caller did not create the event"
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /events/{id} [put]
func (c *EventController) UpdateEvent(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return
	}

	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateEventRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(middleware.FormatValidationErrors(err)))
		return
	}

	image, err := ctx.FormFile("image")
	if err != nil && err != http.ErrMissingFile {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid image upload")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	event, err := c.eventService.UpdateEvent(ctx.Request.Context(), id, userID, &req, image)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(event))
}

// DeleteEvent removes an event
// @Summary Delete an event
// @Description Deletes an event together with its registrations and image. Only the creating organizer may.
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Deleted"
// @Failure 400 {object} dto.ErrorResponse "Invalid event ID"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Failure 403 {object} dto.ErrorResponse "Caller did not create the event"
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /events/{id} [delete]
func (c *EventController) DeleteEvent(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return
	}

	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.eventService.DeleteEvent(ctx.Request.Context(), id, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Event deleted"}))
}

// JoinEvent registers the caller for an event
// @Summary Join an event
// @Description Registers the authenticated user for an upcoming event. Refusals carry the specific reason: already_registered, event_full, not_upcoming or deadline_passed.
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Joined"
// @Failure 400 {object} dto.ErrorResponse "Eligibility denial with reason"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Failure 409 {object} dto.ErrorResponse "Lost a concurrent registration race"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /events/{id}/join [post]
func (c *EventController) JoinEvent(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return
	}

	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.eventService.JoinEvent(ctx.Request.Context(), id, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("eventID", id).
		Int64("userID", userID).
		Msg("User joined event")

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Joined event"}))
}

// LeaveEvent removes the caller's registration
// @Summary Leave an event
// @Description Removes the authenticated user's registration from an upcoming event. Refusals carry the specific reason: not_registered or not_upcoming.
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Left"
// @Failure 400 {object} dto.ErrorResponse "Eligibility denial with reason"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /events/{id}/leave [post]
func (c *EventController) LeaveEvent(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return
	}

	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.eventService.LeaveEvent(ctx.Request.Context(), id, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Left event"}))
}

// GetEventAttendees returns an event's roster
// @Summary List event attendees
// @Description Returns the registered users of an event in join order. Restricted to the event's organizer.
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.AttendeeResponse} "Attendees"
// @Failure 400 {object} dto.ErrorResponse "Invalid event ID"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Failure 403 {object} dto.ErrorResponse "Caller did not create the event"
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /events/{id}/attendees [get]
func (c *EventController) GetEventAttendees(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return
	}

	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	attendees, err := c.eventService.GetEventAttendees(ctx.Request.Context(), id, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(attendees))
}

// GetCalendar aggregates a month of events
// @Summary Month calendar
// @Description Returns every event of the given month visible to the caller, ordered by date and start time.
// @Tags events
// @Produce json
// @Param year path int true "Year"
// @Param month path int true "Month (1-12)"
// @Success 200 {object} dto.APIResponse{data=dto.CalendarResponse} "Calendar"
// @Failure 400 {object} dto.ErrorResponse "Invalid year or month"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /events/calendar/{year}/{month} [get]
func (c *EventController) GetCalendar(ctx *gin.Context) {
	year, err := strconv.Atoi(ctx.Param("year"))
	if err != nil || year < 1 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid year parameter")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	month, err := strconv.Atoi(ctx.Param("month"))
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid month parameter")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	calendar, err := c.eventService.GetEventsByMonth(ctx.Request.Context(), viewerID(ctx), year, month)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(calendar))
}

// GetEventsByOrganizer lists an organizer's events
// @Summary List an organizer's events
// @Description Returns the events created by the given user, filtered to those visible to the caller.
// @Tags events
// @Produce json
// @Param id path int true "Organizer user ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.EventResponse} "Events"
// @Failure 400 {object} dto.ErrorResponse "Invalid organizer ID"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /events/organizer/{id} [get]
func (c *EventController) GetEventsByOrganizer(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	events, err := c.eventService.GetEventsByOrganizer(ctx.Request.Context(), viewerID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(events))
}
