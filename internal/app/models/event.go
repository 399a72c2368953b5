package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emre/eventhub/internal/pkg/apperrors"
)

// OngoingWindow is how long before its start time an event is shown as
// "in progress". Events have no modelled end time, so the window ends at
// the start instant.
const OngoingWindow = 2 * time.Hour

// Event defines the event model based on the 'events' table
type Event struct {
	ID                   int64           `json:"id" db:"id"`
	Title                string          `json:"title" db:"title"`
	Description          string          `json:"description" db:"description"`
	Location             string          `json:"location" db:"location"`
	LocationType         LocationType    `json:"locationType" db:"location_type"`
	Category             EventCategory   `json:"category" db:"category"`
	Date                 time.Time       `json:"date" db:"date"`                 // calendar day of the event
	Time                 string          `json:"time" db:"time"`                 // start time as zero-padded "HH:MM"
	OrganizerID          int64           `json:"organizerId" db:"organizer_id"`  // immutable after creation
	MaxAttendees         *int            `json:"maxAttendees" db:"max_attendees"` // nil = unlimited
	Price                decimal.Decimal `json:"price" db:"price"`
	IsPrivate            bool            `json:"isPrivate" db:"is_private"`
	Status               EventStatus     `json:"status" db:"status"`
	RegistrationDeadline *time.Time      `json:"registrationDeadline,omitempty" db:"registration_deadline"`
	ImageFileID          *int64          `json:"imageFileId,omitempty" db:"image_file_id"`
	CreatedAt            time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time       `json:"updatedAt" db:"updated_at"`

	// Related entities
	Organizer   *User   `json:"organizer,omitempty"`
	Image       *File   `json:"image,omitempty"`
	AttendeeIDs []int64 `json:"-"` // ordered by join time, no duplicates
	Attendees   []*User `json:"attendees,omitempty"`
}

// ParseClock parses a zero-padded 24-hour "HH:MM" string into hour and
// minute. Malformed input is a validation error, never a silent midnight.
func ParseClock(clock string) (hour, minute int, err error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, 0, apperrors.NewValidationError("time", "time must be in HH:MM format")
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, apperrors.NewValidationError("time", "time hour must be a number between 00 and 23")
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, apperrors.NewValidationError("time", "time minute must be a number between 00 and 59")
	}

	return hour, minute, nil
}

// StartInstant combines the event's calendar day and "HH:MM" start time
// into a single instant. Any time-of-day component stored on Date is
// ignored.
func (e *Event) StartInstant() (time.Time, error) {
	hour, minute, err := ParseClock(e.Time)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), hour, minute, 0, 0, e.Date.Location()), nil
}

// DeriveStatus computes the lifecycle state of the event at the given
// instant. It is pure and idempotent; callers persist the result only
// when it differs from the stored status.
//
// Rules, first match wins:
//  1. cancelled is sticky and never transitions out
//  2. start instant strictly before now means completed
//  3. on the event's own day, within the ongoing window before start
//     the event counts as in progress
//  4. anything else is upcoming
func (e *Event) DeriveStatus(now time.Time) (EventStatus, error) {
	if e.Status == StatusCancelled {
		return StatusCancelled, nil
	}

	start, err := e.StartInstant()
	if err != nil {
		return "", err
	}

	if start.Before(now) {
		return StatusCompleted, nil
	}

	if sameCalendarDay(start, now) {
		until := start.Sub(now)
		switch {
		case until < 0:
			return StatusCompleted, nil
		case until <= OngoingWindow:
			return StatusOngoing, nil
		default:
			return StatusUpcoming, nil
		}
	}

	return StatusUpcoming, nil
}

// sameCalendarDay reports whether two instants fall on the same
// year/month/day, compared in the reference instant's location.
func sameCalendarDay(t, ref time.Time) bool {
	y1, m1, d1 := t.In(ref.Location()).Date()
	y2, m2, d2 := ref.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// IsAttendee reports whether the user is on the event's roster.
func (e *Event) IsAttendee(userID int64) bool {
	for _, id := range e.AttendeeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsFull reports whether the attendee cap has been reached. Events
// without a cap are never full.
func (e *Event) IsFull() bool {
	if e.MaxAttendees == nil {
		return false
	}
	return len(e.AttendeeIDs) >= *e.MaxAttendees
}

// CanJoin decides whether the user may register for the event at the
// given instant. A nil result means the join is allowed; otherwise an
// EligibilityError carries the specific denial reason. Organizer
// authorship checks are a separate authorization concern.
func (e *Event) CanJoin(userID int64, now time.Time) error {
	if e.IsAttendee(userID) {
		return apperrors.NewEligibilityError(apperrors.ReasonAlreadyRegistered)
	}

	if e.IsFull() {
		return apperrors.NewEligibilityError(apperrors.ReasonEventFull)
	}

	status, err := e.DeriveStatus(now)
	if err != nil {
		return err
	}
	if status != StatusUpcoming {
		return apperrors.NewEligibilityError(apperrors.ReasonNotUpcoming)
	}

	if e.RegistrationDeadline != nil && now.After(*e.RegistrationDeadline) {
		return apperrors.NewEligibilityError(apperrors.ReasonDeadlinePassed)
	}

	return nil
}

// CanLeave decides whether the user may deregister from the event.
// Leaving an ongoing or completed event is refused so the roster stays
// consistent with what actually happened.
func (e *Event) CanLeave(userID int64, now time.Time) error {
	if !e.IsAttendee(userID) {
		return apperrors.NewEligibilityError(apperrors.ReasonNotRegistered)
	}

	status, err := e.DeriveStatus(now)
	if err != nil {
		return err
	}
	if status != StatusUpcoming {
		return apperrors.NewEligibilityError(apperrors.ReasonNotUpcoming)
	}

	return nil
}

// ApplyJoin appends the user to the roster, preserving join order.
// Callers must have consulted CanJoin first; a duplicate append is a
// no-op rather than a corruption.
func (e *Event) ApplyJoin(userID int64) {
	if e.IsAttendee(userID) {
		return
	}
	e.AttendeeIDs = append(e.AttendeeIDs, userID)
}

// ApplyLeave removes the user from the roster, preserving the order of
// the remaining attendees.
func (e *Event) ApplyLeave(userID int64) {
	for i, id := range e.AttendeeIDs {
		if id == userID {
			e.AttendeeIDs = append(e.AttendeeIDs[:i], e.AttendeeIDs[i+1:]...)
			return
		}
	}
}

// VisibleTo reports whether the viewer may see the event. Public events
// are visible to everyone including anonymous callers (viewerID 0);
// private events only to their organizer and listed attendees.
func (e *Event) VisibleTo(viewerID int64) bool {
	if !e.IsPrivate {
		return true
	}
	if viewerID == 0 {
		return false
	}
	return viewerID == e.OrganizerID || e.IsAttendee(viewerID)
}

// Validate checks the entity invariants shared by create and update
// paths. The first violated field is reported.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return apperrors.NewValidationError("title", "title must not be empty")
	}
	if strings.TrimSpace(e.Description) == "" {
		return apperrors.NewValidationError("description", "description must not be empty")
	}
	if strings.TrimSpace(e.Location) == "" {
		return apperrors.NewValidationError("location", "location must not be empty")
	}
	if e.Date.IsZero() {
		return apperrors.NewValidationError("date", "date is required")
	}
	if _, _, err := ParseClock(e.Time); err != nil {
		return err
	}
	if !e.LocationType.IsValid() {
		return apperrors.NewValidationError("locationType", "locationType must be physical or online")
	}
	if !e.Category.IsValid() {
		return apperrors.NewValidationError("category", "category must be one of conference, workshop, seminar, networking, other")
	}
	if e.MaxAttendees != nil && *e.MaxAttendees <= 0 {
		return apperrors.NewValidationError("maxAttendees", "maxAttendees must be a positive number")
	}
	if e.Price.IsNegative() {
		return apperrors.NewValidationError("price", "price must not be negative")
	}
	return nil
}
