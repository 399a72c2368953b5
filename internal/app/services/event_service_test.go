package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emre/eventhub/internal/app/models"
	"github.com/emre/eventhub/internal/app/models/dto"
	"github.com/emre/eventhub/internal/app/repositories"
	"github.com/emre/eventhub/internal/db"
	"github.com/emre/eventhub/internal/pkg/apperrors"
)

// --- stubs ---

type stubEventStore struct {
	event          *models.Event
	statusWrites   []models.EventStatus
	txStatusWrites []models.EventStatus
}

func (s *stubEventStore) Create(ctx context.Context, event *models.Event) (int64, error) {
	event.ID = 1
	s.event = event
	return 1, nil
}

func (s *stubEventStore) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	if s.event != nil && s.event.ID == id {
		return s.event, nil
	}
	return nil, nil
}

func (s *stubEventStore) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Event, error) {
	return s.GetByID(ctx, id)
}

func (s *stubEventStore) Update(ctx context.Context, event *models.Event) error {
	s.event = event
	return nil
}

func (s *stubEventStore) UpdateStatus(ctx context.Context, id int64, status models.EventStatus) error {
	s.statusWrites = append(s.statusWrites, status)
	if s.event != nil && s.event.ID == id {
		s.event.Status = status
	}
	return nil
}

func (s *stubEventStore) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, status models.EventStatus) error {
	s.txStatusWrites = append(s.txStatusWrites, status)
	if s.event != nil && s.event.ID == id {
		s.event.Status = status
	}
	return nil
}

func (s *stubEventStore) Delete(ctx context.Context, id int64) error {
	s.event = nil
	return nil
}

func (s *stubEventStore) GetAll(ctx context.Context, viewerID int64, filter *repositories.EventFilter) ([]*models.Event, int64, error) {
	if s.event == nil {
		return nil, 0, nil
	}
	return []*models.Event{s.event}, 1, nil
}

func (s *stubEventStore) GetByMonth(ctx context.Context, viewerID int64, year int, month time.Month) ([]*models.Event, error) {
	if s.event == nil {
		return nil, nil
	}
	return []*models.Event{s.event}, nil
}

func (s *stubEventStore) GetByOrganizer(ctx context.Context, organizerID int64) ([]*models.Event, error) {
	if s.event == nil || s.event.OrganizerID != organizerID {
		return nil, nil
	}
	return []*models.Event{s.event}, nil
}

func (s *stubEventStore) GetByIDs(ctx context.Context, ids []int64) ([]*models.Event, error) {
	var events []*models.Event
	for _, id := range ids {
		if s.event != nil && s.event.ID == id {
			events = append(events, s.event)
		}
	}
	return events, nil
}

type stubAttendeeStore struct {
	attendees map[int64][]int64 // eventID -> user IDs in join order
	addErr    error
}

func newStubAttendeeStore() *stubAttendeeStore {
	return &stubAttendeeStore{attendees: make(map[int64][]int64)}
}

func (s *stubAttendeeStore) GetAttendeeIDs(ctx context.Context, eventID int64) ([]int64, error) {
	return s.attendees[eventID], nil
}

func (s *stubAttendeeStore) GetAttendeeIDsForUpdate(ctx context.Context, tx pgx.Tx, eventID int64) ([]int64, error) {
	return s.attendees[eventID], nil
}

func (s *stubAttendeeStore) GetAttendeesByEventID(ctx context.Context, eventID int64) ([]*repositories.Attendee, error) {
	return nil, nil
}

func (s *stubAttendeeStore) Add(ctx context.Context, tx pgx.Tx, eventID, userID int64) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.attendees[eventID] = append(s.attendees[eventID], userID)
	return nil
}

func (s *stubAttendeeStore) Remove(ctx context.Context, tx pgx.Tx, eventID, userID int64) error {
	ids := s.attendees[eventID]
	for i, id := range ids {
		if id == userID {
			s.attendees[eventID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no rows affected")
}

func (s *stubAttendeeStore) GetEventIDsByUserID(ctx context.Context, userID int64) ([]int64, error) {
	var eventIDs []int64
	for eventID, ids := range s.attendees {
		for _, id := range ids {
			if id == userID {
				eventIDs = append(eventIDs, eventID)
			}
		}
	}
	return eventIDs, nil
}

type stubUserStore struct {
	users map[int64]*models.User
}

func (s *stubUserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.users[id], nil
}

func (s *stubUserStore) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	found := make(map[int64]*models.User)
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			found[id] = user
		}
	}
	return found, nil
}

type stubFileStore struct{}

func (stubFileStore) Create(ctx context.Context, file *models.File) (int64, error) { return 1, nil }
func (stubFileStore) GetByID(ctx context.Context, id int64) (*models.File, error)  { return nil, nil }
func (stubFileStore) Delete(ctx context.Context, id int64) error                   { return nil }

// fakeTxManager runs the callback without a real transaction
type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn db.TransactionFn) error {
	return fn(ctx, nil)
}

// --- fixtures ---

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func upcomingEvent() *models.Event {
	return &models.Event{
		ID:           1,
		Title:        "Go Meetup",
		Description:  "Monthly meetup",
		Location:     "Main Hall",
		LocationType: models.LocationPhysical,
		Category:     models.CategoryNetworking,
		Date:         time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC),
		Time:         "10:00",
		OrganizerID:  7,
		Price:        decimal.Zero,
		Status:       models.StatusUpcoming,
	}
}

func newTestService(event *models.Event) (*eventServiceImpl, *stubEventStore, *stubAttendeeStore) {
	eventStore := &stubEventStore{event: event}
	attendeeStore := newStubAttendeeStore()
	userStore := &stubUserStore{users: map[int64]*models.User{
		7:  {ID: 7, Email: "organizer@example.com", FirstName: "Olga", LastName: "Org", RoleType: models.RoleOrganizer},
		42: {ID: 42, Email: "attendee@example.com", FirstName: "Ali", LastName: "Att", RoleType: models.RoleParticipant},
	}}

	svc := &eventServiceImpl{
		eventRepo:    eventStore,
		attendeeRepo: attendeeStore,
		userRepo:     userStore,
		fileRepo:     stubFileStore{},
		tx:           fakeTxManager{},
		logger:       zerolog.Nop(),
		now:          func() time.Time { return testNow },
	}
	return svc, eventStore, attendeeStore
}

// --- tests ---

func TestJoinEvent(t *testing.T) {
	t.Run("registers the user", func(t *testing.T) {
		svc, _, attendees := newTestService(upcomingEvent())

		err := svc.JoinEvent(context.Background(), 1, 42)

		require.NoError(t, err)
		assert.Equal(t, []int64{42}, attendees.attendees[1])
	})

	t.Run("unknown event", func(t *testing.T) {
		svc, _, _ := newTestService(upcomingEvent())

		err := svc.JoinEvent(context.Background(), 99, 42)

		assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	})

	t.Run("already registered", func(t *testing.T) {
		svc, _, attendees := newTestService(upcomingEvent())
		attendees.attendees[1] = []int64{42}

		err := svc.JoinEvent(context.Background(), 1, 42)

		var denial *apperrors.EligibilityError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, apperrors.ReasonAlreadyRegistered, denial.Reason)
	})

	t.Run("full event", func(t *testing.T) {
		event := upcomingEvent()
		limit := 1
		event.MaxAttendees = &limit
		svc, _, attendees := newTestService(event)
		attendees.attendees[1] = []int64{5}

		err := svc.JoinEvent(context.Background(), 1, 42)

		var denial *apperrors.EligibilityError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, apperrors.ReasonEventFull, denial.Reason)
		assert.Equal(t, []int64{5}, attendees.attendees[1])
	})

	t.Run("completed event", func(t *testing.T) {
		event := upcomingEvent()
		event.Date = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		svc, events, _ := newTestService(event)

		err := svc.JoinEvent(context.Background(), 1, 42)

		var denial *apperrors.EligibilityError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, apperrors.ReasonNotUpcoming, denial.Reason)
		// The stale stored status was reconciled under the lock
		assert.Equal(t, []models.EventStatus{models.StatusCompleted}, events.txStatusWrites)
	})

	t.Run("deadline passed", func(t *testing.T) {
		event := upcomingEvent()
		deadline := testNow.Add(-time.Hour)
		event.RegistrationDeadline = &deadline
		svc, _, _ := newTestService(event)

		err := svc.JoinEvent(context.Background(), 1, 42)

		var denial *apperrors.EligibilityError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, apperrors.ReasonDeadlinePassed, denial.Reason)
	})

	t.Run("lost duplicate race maps to conflict", func(t *testing.T) {
		svc, _, attendees := newTestService(upcomingEvent())
		attendees.addErr = &pgconn.PgError{Code: "23505"}

		err := svc.JoinEvent(context.Background(), 1, 42)

		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("private event hidden from strangers", func(t *testing.T) {
		event := upcomingEvent()
		event.IsPrivate = true
		svc, _, _ := newTestService(event)

		err := svc.JoinEvent(context.Background(), 1, 42)

		assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	})
}

func TestLeaveEvent(t *testing.T) {
	t.Run("removes the registration", func(t *testing.T) {
		svc, _, attendees := newTestService(upcomingEvent())
		attendees.attendees[1] = []int64{5, 42, 9}

		err := svc.LeaveEvent(context.Background(), 1, 42)

		require.NoError(t, err)
		assert.Equal(t, []int64{5, 9}, attendees.attendees[1])
	})

	t.Run("not registered", func(t *testing.T) {
		svc, _, _ := newTestService(upcomingEvent())

		err := svc.LeaveEvent(context.Background(), 1, 42)

		var denial *apperrors.EligibilityError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, apperrors.ReasonNotRegistered, denial.Reason)
	})

	t.Run("cancelled event", func(t *testing.T) {
		event := upcomingEvent()
		event.Status = models.StatusCancelled
		svc, _, attendees := newTestService(event)
		attendees.attendees[1] = []int64{42}

		err := svc.LeaveEvent(context.Background(), 1, 42)

		var denial *apperrors.EligibilityError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, apperrors.ReasonNotUpcoming, denial.Reason)
		assert.Equal(t, []int64{42}, attendees.attendees[1])
	})
}

func TestGetEventByID(t *testing.T) {
	t.Run("persists a freshly derived status once", func(t *testing.T) {
		event := upcomingEvent()
		event.Date = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		svc, events, _ := newTestService(event)

		resp, err := svc.GetEventByID(context.Background(), 1, 0)

		require.NoError(t, err)
		assert.Equal(t, string(models.StatusCompleted), resp.Status)
		assert.Equal(t, []models.EventStatus{models.StatusCompleted}, events.statusWrites)

		// A second read finds the stored status already fresh
		_, err = svc.GetEventByID(context.Background(), 1, 0)
		require.NoError(t, err)
		assert.Len(t, events.statusWrites, 1)
	})

	t.Run("no write when the stored status is fresh", func(t *testing.T) {
		svc, events, _ := newTestService(upcomingEvent())

		resp, err := svc.GetEventByID(context.Background(), 1, 0)

		require.NoError(t, err)
		assert.Equal(t, string(models.StatusUpcoming), resp.Status)
		assert.Empty(t, events.statusWrites)
	})

	t.Run("private event invisible to strangers", func(t *testing.T) {
		event := upcomingEvent()
		event.IsPrivate = true
		svc, _, _ := newTestService(event)

		_, err := svc.GetEventByID(context.Background(), 1, 42)

		assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	})

	t.Run("private event visible to an attendee", func(t *testing.T) {
		event := upcomingEvent()
		event.IsPrivate = true
		svc, _, attendees := newTestService(event)
		attendees.attendees[1] = []int64{42}

		resp, err := svc.GetEventByID(context.Background(), 1, 42)

		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.ID)
		// Roster stays organizer-only
		assert.Empty(t, resp.Attendees)
	})

	t.Run("organizer sees the roster", func(t *testing.T) {
		svc, _, attendees := newTestService(upcomingEvent())
		attendees.attendees[1] = []int64{42}

		resp, err := svc.GetEventByID(context.Background(), 1, 7)

		require.NoError(t, err)
		require.Len(t, resp.Attendees, 1)
		assert.Equal(t, int64(42), resp.Attendees[0].ID)
	})
}

func TestGetAllEvents(t *testing.T) {
	svc, _, attendees := newTestService(upcomingEvent())
	attendees.attendees[1] = []int64{42, 5}

	resp, err := svc.GetAllEvents(context.Background(), 0, &dto.EventFilterRequest{Page: 1, PageSize: 10})

	require.NoError(t, err)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, 2, resp.Events[0].AttendeeCount)
	assert.Equal(t, int64(1), resp.Pagination.TotalItems)
	assert.Equal(t, 1, resp.Pagination.CurrentPage)
}

func TestGetEventsByMonth(t *testing.T) {
	t.Run("rejects an invalid month", func(t *testing.T) {
		svc, _, _ := newTestService(upcomingEvent())

		_, err := svc.GetEventsByMonth(context.Background(), 0, 2026, 13)

		assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	})

	t.Run("returns the month's events", func(t *testing.T) {
		svc, _, _ := newTestService(upcomingEvent())

		resp, err := svc.GetEventsByMonth(context.Background(), 0, 2026, 5)

		require.NoError(t, err)
		assert.Equal(t, 2026, resp.Year)
		assert.Equal(t, 5, resp.Month)
		require.Len(t, resp.Events, 1)
	})
}
