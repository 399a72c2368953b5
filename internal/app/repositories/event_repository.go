package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emre/eventhub/internal/app/models"
)

// EventRepository handles database operations for events
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `e.id, e.title, e.description, e.location, e.location_type, e.category,
	e.date, e.time, e.organizer_id, e.max_attendees, e.price, e.is_private, e.status,
	e.registration_deadline, e.image_file_id, e.created_at, e.updated_at`

// visibilityPredicate returns the squirrel condition limiting rows to
// events the viewer may see. A viewerID of 0 means anonymous.
func visibilityPredicate(viewerID int64) squirrel.Sqlizer {
	if viewerID == 0 {
		return squirrel.Eq{"e.is_private": false}
	}
	return squirrel.Or{
		squirrel.Eq{"e.is_private": false},
		squirrel.Eq{"e.organizer_id": viewerID},
		squirrel.Expr("EXISTS (SELECT 1 FROM event_attendees ea WHERE ea.event_id = e.id AND ea.user_id = ?)", viewerID),
	}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var event models.Event
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Location,
		&event.LocationType,
		&event.Category,
		&event.Date,
		&event.Time,
		&event.OrganizerID,
		&event.MaxAttendees,
		&event.Price,
		&event.IsPrivate,
		&event.Status,
		&event.RegistrationDeadline,
		&event.ImageFileID,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return &event, nil
}

// Create creates a new event and returns its ID
func (r *EventRepository) Create(ctx context.Context, event *models.Event) (int64, error) {
	query := squirrel.Insert("events").
		Columns("title", "description", "location", "location_type", "category", "date", "time",
			"organizer_id", "max_attendees", "price", "is_private", "status",
			"registration_deadline", "image_file_id").
		Values(event.Title, event.Description, event.Location, event.LocationType, event.Category,
			event.Date, event.Time, event.OrganizerID, event.MaxAttendees, event.Price,
			event.IsPrivate, event.Status, event.RegistrationDeadline, event.ImageFileID).
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	var id int64
	err = r.db.QueryRow(ctx, sql, args...).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}

	return id, nil
}

// GetByID retrieves an event by ID, nil when missing. Related entities
// are not loaded here; services compose them as needed.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events e WHERE e.id = $1", eventColumns)
	return scanEvent(r.db.QueryRow(ctx, query, id))
}

// GetByIDForUpdate retrieves an event inside a transaction with a row
// lock, serializing concurrent join and leave attempts on the same event.
func (r *EventRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events e WHERE e.id = $1 FOR UPDATE", eventColumns)
	return scanEvent(tx.QueryRow(ctx, query, id))
}

// Update replaces the mutable fields of an event
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	query := squirrel.Update("events").
		Set("title", event.Title).
		Set("description", event.Description).
		Set("location", event.Location).
		Set("location_type", event.LocationType).
		Set("category", event.Category).
		Set("date", event.Date).
		Set("time", event.Time).
		Set("max_attendees", event.MaxAttendees).
		Set("price", event.Price).
		Set("is_private", event.IsPrivate).
		Set("status", event.Status).
		Set("registration_deadline", event.RegistrationDeadline).
		Set("image_file_id", event.ImageFileID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": event.ID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	result, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("no rows affected")
	}

	return nil
}

// UpdateStatus persists a newly derived status. Called only when the
// stored status actually differs from the derived one.
func (r *EventRepository) UpdateStatus(ctx context.Context, id int64, status models.EventStatus) error {
	return updateStatus(ctx, r.db, id, status)
}

// UpdateStatusTx is the in-transaction variant of UpdateStatus
func (r *EventRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, status models.EventStatus) error {
	return updateStatus(ctx, tx, id, status)
}

func updateStatus(ctx context.Context, q querier, id int64, status models.EventStatus) error {
	_, err := q.Exec(ctx, "UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// Delete removes an event. Attendee rows go with it via ON DELETE CASCADE.
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, "DELETE FROM events WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("no rows affected")
	}

	return nil
}

// GetAll retrieves a page of events visible to the viewer, applying the
// optional filters. Returns the events and the total row count.
func (r *EventRepository) GetAll(ctx context.Context, viewerID int64, filter *EventFilter) ([]*models.Event, int64, error) {
	query := squirrel.Select(eventColumns).
		Column("COUNT(*) OVER() AS total_count").
		From("events e").
		Where(visibilityPredicate(viewerID)).
		PlaceholderFormat(squirrel.Dollar)

	if filter != nil {
		if filter.Category != nil {
			query = query.Where(squirrel.Eq{"e.category": *filter.Category})
		}
		if filter.Search != nil && *filter.Search != "" {
			pattern := "%" + *filter.Search + "%"
			query = query.Where(squirrel.Or{
				squirrel.ILike{"e.title": pattern},
				squirrel.ILike{"e.description": pattern},
			})
		}
		if filter.OrganizerID != nil {
			query = query.Where(squirrel.Eq{"e.organizer_id": *filter.OrganizerID})
		}
		if filter.Day != nil {
			query = query.Where(squirrel.Eq{"e.date": *filter.Day})
		}
	}

	query = query.OrderBy("e.date ASC", "e.time ASC", "e.id ASC")

	if filter != nil && filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	var total int64
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Description,
			&event.Location,
			&event.LocationType,
			&event.Category,
			&event.Date,
			&event.Time,
			&event.OrganizerID,
			&event.MaxAttendees,
			&event.Price,
			&event.IsPrivate,
			&event.Status,
			&event.RegistrationDeadline,
			&event.ImageFileID,
			&event.CreatedAt,
			&event.UpdatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning row: %w", err)
		}
		events = append(events, &event)
	}

	return events, total, nil
}

// GetByMonth retrieves every event of a calendar month visible to the
// viewer, ordered by date then start time.
func (r *EventRepository) GetByMonth(ctx context.Context, viewerID int64, year int, month time.Month) ([]*models.Event, error) {
	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	nextMonth := firstDay.AddDate(0, 1, 0)

	query := squirrel.Select(eventColumns).
		From("events e").
		Where(visibilityPredicate(viewerID)).
		Where(squirrel.GtOrEq{"e.date": firstDay}).
		Where(squirrel.Lt{"e.date": nextMonth}).
		OrderBy("e.date ASC", "e.time ASC", "e.id ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	return r.queryEvents(ctx, sql, args)
}

// GetByOrganizer retrieves every event created by the given user
func (r *EventRepository) GetByOrganizer(ctx context.Context, organizerID int64) ([]*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events e WHERE e.organizer_id = $1 ORDER BY e.date ASC, e.time ASC, e.id ASC", eventColumns)
	return r.queryEvents(ctx, query, []any{organizerID})
}

// GetByIDs retrieves events by ID, ordered by date then start time
func (r *EventRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := squirrel.Select(eventColumns).
		From("events e").
		Where(squirrel.Eq{"e.id": ids}).
		OrderBy("e.date ASC", "e.time ASC", "e.id ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	return r.queryEvents(ctx, sql, args)
}

func (r *EventRepository) queryEvents(ctx context.Context, sql string, args []any) ([]*models.Event, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Description,
			&event.Location,
			&event.LocationType,
			&event.Category,
			&event.Date,
			&event.Time,
			&event.OrganizerID,
			&event.MaxAttendees,
			&event.Price,
			&event.IsPrivate,
			&event.Status,
			&event.RegistrationDeadline,
			&event.ImageFileID,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		events = append(events, &event)
	}

	return events, nil
}

// EventFilter carries the repository-level filters for event listings
type EventFilter struct {
	Category    *string
	Search      *string
	OrganizerID *int64
	Day         *time.Time
	Offset      int
	Limit       int
}
