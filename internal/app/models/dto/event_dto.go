package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/emre/eventhub/internal/app/models"
)

// --- Request DTOs ---

// CreateEventRequest represents event creation data. The request arrives
// as a multipart form so an image can ride along.
type CreateEventRequest struct {
	Title                string  `json:"title" form:"title" binding:"required"`
	Description          string  `json:"description" form:"description" binding:"required"`
	Location             string  `json:"location" form:"location" binding:"required"`
	LocationType         string  `json:"locationType" form:"locationType" binding:"required,oneof=physical online"`
	Category             string  `json:"category" form:"category" binding:"required,oneof=conference workshop seminar networking other"`
	Date                 string  `json:"date" form:"date" binding:"required"` // "2006-01-02"
	Time                 string  `json:"time" form:"time" binding:"required"` // "HH:MM"
	MaxAttendees         *int    `json:"maxAttendees" form:"maxAttendees" binding:"omitempty,gt=0"`
	Price                *string `json:"price" form:"price"` // decimal string, defaults to 0
	IsPrivate            bool    `json:"isPrivate" form:"isPrivate"`
	RegistrationDeadline *string `json:"registrationDeadline" form:"registrationDeadline"` // "2006-01-02"
}

// UpdateEventRequest represents event update data. The organizer cannot
// be changed; a new image replaces the old one.
type UpdateEventRequest struct {
	Title                string  `json:"title" form:"title" binding:"required"`
	Description          string  `json:"description" form:"description" binding:"required"`
	Location             string  `json:"location" form:"location" binding:"required"`
	LocationType         string  `json:"locationType" form:"locationType" binding:"required,oneof=physical online"`
	Category             string  `json:"category" form:"category" binding:"required,oneof=conference workshop seminar networking other"`
	Date                 string  `json:"date" form:"date" binding:"required"`
	Time                 string  `json:"time" form:"time" binding:"required"`
	MaxAttendees         *int    `json:"maxAttendees" form:"maxAttendees" binding:"omitempty,gt=0"`
	Price                *string `json:"price" form:"price"`
	IsPrivate            bool    `json:"isPrivate" form:"isPrivate"`
	RegistrationDeadline *string `json:"registrationDeadline" form:"registrationDeadline"`
	Cancelled            bool    `json:"cancelled" form:"cancelled"` // explicit organizer cancellation, sticky
}

// EventFilterRequest represents event filter parameters. Filters compose
// and apply after visibility filtering.
type EventFilterRequest struct {
	Category    *string    `form:"category"`
	Search      *string    `form:"search"` // free text over title and description
	OrganizerID *int64     `form:"organizerId"`
	Day         *time.Time `form:"-"` // exact calendar day, parsed from "date"
	Page        int        `form:"page,default=1" binding:"min=1"`
	PageSize    int        `form:"size,default=10" binding:"min=1,max=100"`
}

// --- Response DTOs ---

// UserBasicResponse represents minimal user information embedded in
// event responses
type UserBasicResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// AttendeeResponse represents a user on an event's roster
type AttendeeResponse struct {
	UserBasicResponse
	JoinedAt time.Time `json:"joinedAt"`
}

// EventResponse represents an event in API responses. Status is always
// the freshly derived value.
type EventResponse struct {
	ID                   int64              `json:"id"`
	Title                string             `json:"title"`
	Description          string             `json:"description"`
	Location             string             `json:"location"`
	LocationType         string             `json:"locationType"`
	Category             string             `json:"category"`
	Date                 string             `json:"date"` // "2006-01-02"
	Time                 string             `json:"time"` // "HH:MM"
	Status               string             `json:"status"`
	Price                decimal.Decimal    `json:"price"`
	IsPrivate            bool               `json:"isPrivate"`
	MaxAttendees         *int               `json:"maxAttendees"`
	AttendeeCount        int                `json:"attendeeCount"`
	RegistrationDeadline *string            `json:"registrationDeadline,omitempty"`
	ImageURL             *string            `json:"imageUrl,omitempty"`
	Organizer            *UserBasicResponse `json:"organizer,omitempty"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// EventDetailResponse extends EventResponse with the attendee roster
type EventDetailResponse struct {
	EventResponse
	Attendees []UserBasicResponse `json:"attendees"`
}

// EventListResponse represents a page of events
type EventListResponse struct {
	Events     []EventResponse `json:"events"`
	Pagination PaginationInfo  `json:"pagination"`
}

// CalendarResponse represents all visible events of one month, ordered
// by date and start time
type CalendarResponse struct {
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Events []EventResponse `json:"events"`
}

// FromEvent converts a models.Event to an EventResponse
func FromEvent(event *models.Event) EventResponse {
	if event == nil {
		return EventResponse{}
	}

	resp := EventResponse{
		ID:            event.ID,
		Title:         event.Title,
		Description:   event.Description,
		Location:      event.Location,
		LocationType:  string(event.LocationType),
		Category:      string(event.Category),
		Date:          event.Date.Format("2006-01-02"),
		Time:          event.Time,
		Status:        string(event.Status),
		Price:         event.Price,
		IsPrivate:     event.IsPrivate,
		MaxAttendees:  event.MaxAttendees,
		AttendeeCount: len(event.AttendeeIDs),
		CreatedAt:     event.CreatedAt,
		UpdatedAt:     event.UpdatedAt,
	}

	if event.RegistrationDeadline != nil {
		deadline := event.RegistrationDeadline.Format("2006-01-02")
		resp.RegistrationDeadline = &deadline
	}

	if event.Image != nil {
		resp.ImageURL = &event.Image.FileURL
	}

	if event.Organizer != nil {
		resp.Organizer = &UserBasicResponse{
			ID:        event.Organizer.ID,
			FirstName: event.Organizer.FirstName,
			LastName:  event.Organizer.LastName,
			Email:     event.Organizer.Email,
		}
	}

	return resp
}
