package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/emre/eventhub/internal/app/auth"
	"github.com/emre/eventhub/internal/app/models"
	"github.com/emre/eventhub/internal/app/models/dto"
	"github.com/emre/eventhub/internal/app/repositories"
	"github.com/emre/eventhub/internal/db"
	"github.com/emre/eventhub/internal/pkg/apperrors"
	"github.com/emre/eventhub/internal/pkg/dberrors"
	"github.com/emre/eventhub/internal/pkg/filestorage"
	"github.com/emre/eventhub/internal/pkg/helpers"
)

// EventService defines the interface for event operations
type EventService interface {
	GetAllEvents(ctx context.Context, viewerID int64, filter *dto.EventFilterRequest) (*dto.EventListResponse, error)
	GetEventByID(ctx context.Context, id int64, viewerID int64) (*dto.EventDetailResponse, error)
	CreateEvent(ctx context.Context, organizerID int64, req *dto.CreateEventRequest, image *multipart.FileHeader) (*dto.EventResponse, error)
	UpdateEvent(ctx context.Context, eventID int64, userID int64, req *dto.UpdateEventRequest, image *multipart.FileHeader) (*dto.EventResponse, error)
	DeleteEvent(ctx context.Context, eventID int64, userID int64) error
	JoinEvent(ctx context.Context, eventID int64, userID int64) error
	LeaveEvent(ctx context.Context, eventID int64, userID int64) error
	GetEventAttendees(ctx context.Context, eventID int64, userID int64) ([]dto.AttendeeResponse, error)
	GetEventsByMonth(ctx context.Context, viewerID int64, year int, month int) (*dto.CalendarResponse, error)
	GetEventsByOrganizer(ctx context.Context, viewerID int64, organizerID int64) ([]dto.EventResponse, error)
	GetEventsAttending(ctx context.Context, userID int64) ([]dto.EventResponse, error)
}

// eventStore is the slice of EventRepository the service depends on
type eventStore interface {
	Create(ctx context.Context, event *models.Event) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, id int64, status models.EventStatus) error
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, status models.EventStatus) error
	Delete(ctx context.Context, id int64) error
	GetAll(ctx context.Context, viewerID int64, filter *repositories.EventFilter) ([]*models.Event, int64, error)
	GetByMonth(ctx context.Context, viewerID int64, year int, month time.Month) ([]*models.Event, error)
	GetByOrganizer(ctx context.Context, organizerID int64) ([]*models.Event, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Event, error)
}

type attendeeStore interface {
	GetAttendeeIDs(ctx context.Context, eventID int64) ([]int64, error)
	GetAttendeeIDsForUpdate(ctx context.Context, tx pgx.Tx, eventID int64) ([]int64, error)
	GetAttendeesByEventID(ctx context.Context, eventID int64) ([]*repositories.Attendee, error)
	Add(ctx context.Context, tx pgx.Tx, eventID, userID int64) error
	Remove(ctx context.Context, tx pgx.Tx, eventID, userID int64) error
	GetEventIDsByUserID(ctx context.Context, userID int64) ([]int64, error)
}

type userStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error)
}

type fileStore interface {
	Create(ctx context.Context, file *models.File) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.File, error)
	Delete(ctx context.Context, id int64) error
}

// txManager runs a function inside a database transaction
type txManager interface {
	WithTransaction(ctx context.Context, fn db.TransactionFn) error
}

// eventServiceImpl implements EventService
type eventServiceImpl struct {
	eventRepo    eventStore
	attendeeRepo attendeeStore
	userRepo     userStore
	fileRepo     fileStore
	tx           txManager
	fileStorage  *filestorage.LocalStorage
	authzService *auth.AuthorizationService
	logger       zerolog.Logger
	now          func() time.Time
}

// NewEventService creates a new EventService
func NewEventService(
	eventRepo *repositories.EventRepository,
	attendeeRepo *repositories.AttendeeRepository,
	userRepo *repositories.UserRepository,
	fileRepo *repositories.FileRepository,
	tx *db.PostgresDB,
	fileStorage *filestorage.LocalStorage,
	authzService *auth.AuthorizationService,
	logger zerolog.Logger,
) EventService {
	return &eventServiceImpl{
		eventRepo:    eventRepo,
		attendeeRepo: attendeeRepo,
		userRepo:     userRepo,
		fileRepo:     fileRepo,
		tx:           tx,
		fileStorage:  fileStorage,
		authzService: authzService,
		logger:       logger,
		now:          time.Now,
	}
}

// reconcileStatus re-derives the event's status and persists it only
// when the stored value is stale. At most one write per call; the
// deriver itself stays side-effect free.
func (s *eventServiceImpl) reconcileStatus(ctx context.Context, event *models.Event) error {
	derived, err := event.DeriveStatus(s.now())
	if err != nil {
		return err
	}

	if derived != event.Status {
		if err := s.eventRepo.UpdateStatus(ctx, event.ID, derived); err != nil {
			return fmt.Errorf("error updating event status: %w", err)
		}
		event.Status = derived
	}

	return nil
}

// hydrate attaches the attendee IDs, organizer and image to an event
func (s *eventServiceImpl) hydrate(ctx context.Context, event *models.Event) error {
	attendeeIDs, err := s.attendeeRepo.GetAttendeeIDs(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("error getting attendees: %w", err)
	}
	event.AttendeeIDs = attendeeIDs

	organizer, err := s.userRepo.GetByID(ctx, event.OrganizerID)
	if err != nil {
		return fmt.Errorf("error getting organizer: %w", err)
	}
	event.Organizer = organizer

	if event.ImageFileID != nil {
		image, err := s.fileRepo.GetByID(ctx, *event.ImageFileID)
		if err != nil {
			return fmt.Errorf("error getting event image: %w", err)
		}
		event.Image = image
	}

	return nil
}

// buildResponses hydrates and reconciles a batch of events into
// response DTOs, preserving order.
func (s *eventServiceImpl) buildResponses(ctx context.Context, events []*models.Event) ([]dto.EventResponse, error) {
	responses := make([]dto.EventResponse, 0, len(events))
	for _, event := range events {
		if err := s.hydrate(ctx, event); err != nil {
			return nil, err
		}
		if err := s.reconcileStatus(ctx, event); err != nil {
			return nil, err
		}
		responses = append(responses, dto.FromEvent(event))
	}
	return responses, nil
}

// GetAllEvents retrieves a page of events visible to the viewer
func (s *eventServiceImpl) GetAllEvents(ctx context.Context, viewerID int64, filter *dto.EventFilterRequest) (*dto.EventListResponse, error) {
	s.logger.Debug().
		Int64("viewerID", viewerID).
		Interface("filter", filter).
		Msg("Getting all events")

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.PageSize)

	repoFilter := &repositories.EventFilter{
		Category:    filter.Category,
		Search:      filter.Search,
		OrganizerID: filter.OrganizerID,
		Day:         filter.Day,
		Offset:      int(offset),
		Limit:       limit,
	}

	events, total, err := s.eventRepo.GetAll(ctx, viewerID, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("error getting events: %w", err)
	}

	responses, err := s.buildResponses(ctx, events)
	if err != nil {
		return nil, err
	}

	return &dto.EventListResponse{
		Events:     responses,
		Pagination: helpers.NewPaginationInfo(total, filter.Page, limit),
	}, nil
}

// GetEventByID retrieves a single event. Private events behave as
// missing for viewers outside the organizer and roster.
func (s *eventServiceImpl) GetEventByID(ctx context.Context, id int64, viewerID int64) (*dto.EventDetailResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting event: %w", err)
	}
	if event == nil {
		return nil, apperrors.NewResourceNotFoundError("Event not found")
	}

	if err := s.hydrate(ctx, event); err != nil {
		return nil, err
	}

	if !event.VisibleTo(viewerID) {
		return nil, apperrors.NewResourceNotFoundError("Event not found")
	}

	if err := s.reconcileStatus(ctx, event); err != nil {
		return nil, err
	}

	resp := &dto.EventDetailResponse{
		EventResponse: dto.FromEvent(event),
		Attendees:     []dto.UserBasicResponse{},
	}

	// The full roster is only exposed to the event's organizer
	if viewerID == event.OrganizerID {
		attendees, err := s.userRepo.GetByIDs(ctx, event.AttendeeIDs)
		if err != nil {
			return nil, fmt.Errorf("error getting attendee users: %w", err)
		}
		for _, attendeeID := range event.AttendeeIDs {
			if user, ok := attendees[attendeeID]; ok {
				resp.Attendees = append(resp.Attendees, dto.UserBasicResponse{
					ID:        user.ID,
					FirstName: user.FirstName,
					LastName:  user.LastName,
					Email:     user.Email,
				})
			}
		}
	}

	return resp, nil
}

// CreateEvent creates a new event owned by the authenticated organizer
func (s *eventServiceImpl) CreateEvent(ctx context.Context, organizerID int64, req *dto.CreateEventRequest, image *multipart.FileHeader) (*dto.EventResponse, error) {
	s.logger.Debug().
		Int64("organizerID", organizerID).
		Str("title", req.Title).
		Msg("Creating event")

	if err := s.authzService.ValidateOrganizer(ctx, organizerID); err != nil {
		return nil, err
	}

	event, err := s.eventFromRequest(req.Title, req.Description, req.Location, req.LocationType,
		req.Category, req.Date, req.Time, req.MaxAttendees, req.Price, req.IsPrivate, req.RegistrationDeadline)
	if err != nil {
		return nil, err
	}
	event.OrganizerID = organizerID

	status, err := event.DeriveStatus(s.now())
	if err != nil {
		return nil, err
	}
	event.Status = status

	if image != nil {
		file, err := s.saveEventImage(ctx, image, organizerID)
		if err != nil {
			return nil, err
		}
		event.ImageFileID = &file.ID
		event.Image = file
	}

	id, err := s.eventRepo.Create(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("error creating event: %w", err)
	}

	created, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting created event: %w", err)
	}
	if err := s.hydrate(ctx, created); err != nil {
		return nil, err
	}

	resp := dto.FromEvent(created)
	return &resp, nil
}

// UpdateEvent updates an existing event. Only the creating organizer
// may; the organizer field itself never changes. Setting cancelled is
// sticky and wins over any derived status.
func (s *eventServiceImpl) UpdateEvent(ctx context.Context, eventID int64, userID int64, req *dto.UpdateEventRequest, image *multipart.FileHeader) (*dto.EventResponse, error) {
	if err := s.authzService.ValidateEventOwnership(ctx, eventID, userID); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("error getting event: %w", err)
	}
	if event == nil {
		return nil, apperrors.NewResourceNotFoundError("Event not found")
	}

	updated, err := s.eventFromRequest(req.Title, req.Description, req.Location, req.LocationType,
		req.Category, req.Date, req.Time, req.MaxAttendees, req.Price, req.IsPrivate, req.RegistrationDeadline)
	if err != nil {
		return nil, err
	}

	event.Title = updated.Title
	event.Description = updated.Description
	event.Location = updated.Location
	event.LocationType = updated.LocationType
	event.Category = updated.Category
	event.Date = updated.Date
	event.Time = updated.Time
	event.MaxAttendees = updated.MaxAttendees
	event.Price = updated.Price
	event.IsPrivate = updated.IsPrivate
	event.RegistrationDeadline = updated.RegistrationDeadline

	if req.Cancelled {
		event.Status = models.StatusCancelled
	} else if event.Status != models.StatusCancelled {
		status, err := event.DeriveStatus(s.now())
		if err != nil {
			return nil, err
		}
		event.Status = status
	}

	var oldImage *models.File
	if image != nil {
		if event.ImageFileID != nil {
			oldImage, err = s.fileRepo.GetByID(ctx, *event.ImageFileID)
			if err != nil {
				return nil, fmt.Errorf("error getting event image: %w", err)
			}
		}

		file, err := s.saveEventImage(ctx, image, userID)
		if err != nil {
			return nil, err
		}
		event.ImageFileID = &file.ID
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("error updating event: %w", err)
	}

	// The replaced image goes away only after the update is persisted
	if oldImage != nil {
		if err := s.fileStorage.DeleteFile(oldImage.FileName); err != nil {
			s.logger.Warn().Err(err).Str("fileName", oldImage.FileName).Msg("Failed to delete replaced event image")
		}
		if err := s.fileRepo.Delete(ctx, oldImage.ID); err != nil {
			s.logger.Warn().Err(err).Int64("fileID", oldImage.ID).Msg("Failed to delete replaced image record")
		}
	}

	if err := s.hydrate(ctx, event); err != nil {
		return nil, err
	}

	resp := dto.FromEvent(event)
	return &resp, nil
}

// DeleteEvent removes an event, its attendee registrations and its image
func (s *eventServiceImpl) DeleteEvent(ctx context.Context, eventID int64, userID int64) error {
	if err := s.authzService.ValidateEventOwnership(ctx, eventID, userID); err != nil {
		return err
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("error getting event: %w", err)
	}
	if event == nil {
		return apperrors.NewResourceNotFoundError("Event not found")
	}

	var image *models.File
	if event.ImageFileID != nil {
		image, err = s.fileRepo.GetByID(ctx, *event.ImageFileID)
		if err != nil {
			return fmt.Errorf("error getting event image: %w", err)
		}
	}

	// Attendee rows are removed by the ON DELETE CASCADE on the join table
	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		return fmt.Errorf("error deleting event: %w", err)
	}

	if image != nil {
		if err := s.fileStorage.DeleteFile(image.FileName); err != nil {
			s.logger.Warn().Err(err).Str("fileName", image.FileName).Msg("Failed to delete event image file")
		}
		if err := s.fileRepo.Delete(ctx, image.ID); err != nil {
			s.logger.Warn().Err(err).Int64("fileID", image.ID).Msg("Failed to delete event image record")
		}
	}

	s.logger.Info().
		Int64("eventID", eventID).
		Int64("userID", userID).
		Msg("Event deleted")

	return nil
}

// JoinEvent registers a user for an event. The event row is locked for
// the duration of the transaction so concurrent joins on the same event
// serialize, and eligibility is re-checked under the lock. A duplicate
// insert that still slips through surfaces as a conflict.
func (s *eventServiceImpl) JoinEvent(ctx context.Context, eventID int64, userID int64) error {
	s.logger.Debug().
		Int64("eventID", eventID).
		Int64("userID", userID).
		Msg("User joining event")

	return s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		event, err := s.eventRepo.GetByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			return fmt.Errorf("error getting event: %w", err)
		}
		if event == nil {
			return apperrors.NewResourceNotFoundError("Event not found")
		}

		attendeeIDs, err := s.attendeeRepo.GetAttendeeIDsForUpdate(ctx, tx, eventID)
		if err != nil {
			return fmt.Errorf("error getting attendees: %w", err)
		}
		event.AttendeeIDs = attendeeIDs

		if !event.VisibleTo(userID) {
			return apperrors.NewResourceNotFoundError("Event not found")
		}

		now := s.now()
		derived, err := event.DeriveStatus(now)
		if err != nil {
			return err
		}
		if derived != event.Status {
			if err := s.eventRepo.UpdateStatusTx(ctx, tx, eventID, derived); err != nil {
				return fmt.Errorf("error updating event status: %w", err)
			}
			event.Status = derived
		}

		if err := event.CanJoin(userID, now); err != nil {
			return err
		}

		if err := s.attendeeRepo.Add(ctx, tx, eventID, userID); err != nil {
			if dberrors.IsUniqueViolation(err) {
				return apperrors.ErrConflict
			}
			return fmt.Errorf("error adding attendee: %w", err)
		}

		return nil
	})
}

// LeaveEvent removes a user's registration from an event, under the
// same row lock as JoinEvent.
func (s *eventServiceImpl) LeaveEvent(ctx context.Context, eventID int64, userID int64) error {
	s.logger.Debug().
		Int64("eventID", eventID).
		Int64("userID", userID).
		Msg("User leaving event")

	return s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		event, err := s.eventRepo.GetByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			return fmt.Errorf("error getting event: %w", err)
		}
		if event == nil {
			return apperrors.NewResourceNotFoundError("Event not found")
		}

		attendeeIDs, err := s.attendeeRepo.GetAttendeeIDsForUpdate(ctx, tx, eventID)
		if err != nil {
			return fmt.Errorf("error getting attendees: %w", err)
		}
		event.AttendeeIDs = attendeeIDs

		now := s.now()
		derived, err := event.DeriveStatus(now)
		if err != nil {
			return err
		}
		if derived != event.Status {
			if err := s.eventRepo.UpdateStatusTx(ctx, tx, eventID, derived); err != nil {
				return fmt.Errorf("error updating event status: %w", err)
			}
			event.Status = derived
		}

		if err := event.CanLeave(userID, now); err != nil {
			return err
		}

		if err := s.attendeeRepo.Remove(ctx, tx, eventID, userID); err != nil {
			return fmt.Errorf("error removing attendee: %w", err)
		}

		return nil
	})
}

// GetEventAttendees returns the roster of an event, organizer only
func (s *eventServiceImpl) GetEventAttendees(ctx context.Context, eventID int64, userID int64) ([]dto.AttendeeResponse, error) {
	if err := s.authzService.ValidateEventOwnership(ctx, eventID, userID); err != nil {
		return nil, err
	}

	attendees, err := s.attendeeRepo.GetAttendeesByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("error getting attendees: %w", err)
	}

	responses := make([]dto.AttendeeResponse, 0, len(attendees))
	for _, attendee := range attendees {
		responses = append(responses, dto.AttendeeResponse{
			UserBasicResponse: dto.UserBasicResponse{
				ID:        attendee.User.ID,
				FirstName: attendee.User.FirstName,
				LastName:  attendee.User.LastName,
				Email:     attendee.User.Email,
			},
			JoinedAt: attendee.JoinedAt,
		})
	}

	return responses, nil
}

// GetEventsByMonth aggregates every visible event of a calendar month,
// ordered by date then start time
func (s *eventServiceImpl) GetEventsByMonth(ctx context.Context, viewerID int64, year int, month int) (*dto.CalendarResponse, error) {
	if month < 1 || month > 12 {
		return nil, apperrors.NewValidationError("month", "month must be between 1 and 12")
	}
	if year < 1 {
		return nil, apperrors.NewValidationError("year", "year must be positive")
	}

	events, err := s.eventRepo.GetByMonth(ctx, viewerID, year, time.Month(month))
	if err != nil {
		return nil, fmt.Errorf("error getting events for month: %w", err)
	}

	responses, err := s.buildResponses(ctx, events)
	if err != nil {
		return nil, err
	}

	return &dto.CalendarResponse{
		Year:   year,
		Month:  month,
		Events: responses,
	}, nil
}

// GetEventsByOrganizer returns the organizer's events the viewer may see
func (s *eventServiceImpl) GetEventsByOrganizer(ctx context.Context, viewerID int64, organizerID int64) ([]dto.EventResponse, error) {
	events, err := s.eventRepo.GetByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("error getting organizer events: %w", err)
	}

	responses := make([]dto.EventResponse, 0, len(events))
	for _, event := range events {
		if err := s.hydrate(ctx, event); err != nil {
			return nil, err
		}
		if !event.VisibleTo(viewerID) {
			continue
		}
		if err := s.reconcileStatus(ctx, event); err != nil {
			return nil, err
		}
		responses = append(responses, dto.FromEvent(event))
	}

	return responses, nil
}

// GetEventsAttending returns the events the user is registered for, in
// join order
func (s *eventServiceImpl) GetEventsAttending(ctx context.Context, userID int64) ([]dto.EventResponse, error) {
	eventIDs, err := s.attendeeRepo.GetEventIDsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting attended events: %w", err)
	}

	events, err := s.eventRepo.GetByIDs(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("error getting events: %w", err)
	}

	return s.buildResponses(ctx, events)
}

// eventFromRequest parses and validates the shared create/update form
// fields into an event entity.
func (s *eventServiceImpl) eventFromRequest(title, description, location, locationType, category,
	date, clock string, maxAttendees *int, price *string, isPrivate bool, deadline *string) (*models.Event, error) {

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, apperrors.NewValidationError("date", "date must be in YYYY-MM-DD format")
	}

	if _, _, err := models.ParseClock(clock); err != nil {
		return nil, err
	}

	eventPrice := decimal.Zero
	if price != nil && *price != "" {
		eventPrice, err = decimal.NewFromString(*price)
		if err != nil {
			return nil, apperrors.NewValidationError("price", "price must be a decimal number")
		}
		if eventPrice.IsNegative() {
			return nil, apperrors.NewValidationError("price", "price must not be negative")
		}
	}

	var registrationDeadline *time.Time
	if deadline != nil && *deadline != "" {
		parsed, err := time.Parse("2006-01-02", *deadline)
		if err != nil {
			return nil, apperrors.NewValidationError("registrationDeadline", "registrationDeadline must be in YYYY-MM-DD format")
		}
		// The deadline covers its whole day
		endOfDay := parsed.Add(24*time.Hour - time.Second)
		registrationDeadline = &endOfDay
	}

	event := &models.Event{
		Title:                title,
		Description:          description,
		Location:             location,
		LocationType:         models.LocationType(locationType),
		Category:             models.EventCategory(category),
		Date:                 day,
		Time:                 clock,
		MaxAttendees:         maxAttendees,
		Price:                eventPrice,
		IsPrivate:            isPrivate,
		RegistrationDeadline: registrationDeadline,
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	return event, nil
}

// saveEventImage stores an uploaded image and records it in the files table
func (s *eventServiceImpl) saveEventImage(ctx context.Context, fileHeader *multipart.FileHeader, uploadedBy int64) (*models.File, error) {
	fileName, fileURL, err := s.fileStorage.SaveFile(fileHeader, "events")
	if err != nil {
		return nil, fmt.Errorf("error saving event image: %w", err)
	}

	file := &models.File{
		FileName:   fileName,
		FilePath:   fileName,
		FileURL:    fileURL,
		FileSize:   fileHeader.Size,
		FileType:   fileHeader.Header.Get("Content-Type"),
		UploadedBy: uploadedBy,
	}

	id, err := s.fileRepo.Create(ctx, file)
	if err != nil {
		if delErr := s.fileStorage.DeleteFile(fileName); delErr != nil {
			s.logger.Warn().Err(delErr).Str("fileName", fileName).Msg("Failed to clean up orphaned image file")
		}
		return nil, fmt.Errorf("error creating file record: %w", err)
	}
	file.ID = id

	return file, nil
}
