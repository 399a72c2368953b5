package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emre/eventhub/internal/app/models"
)

// AttendeeRepository handles the event_attendees join table
type AttendeeRepository struct {
	db *pgxpool.Pool
}

// NewAttendeeRepository creates a new AttendeeRepository
func NewAttendeeRepository(db *pgxpool.Pool) *AttendeeRepository {
	return &AttendeeRepository{db: db}
}

// GetAttendeeIDs returns the user IDs registered for an event, ordered
// by join time
func (r *AttendeeRepository) GetAttendeeIDs(ctx context.Context, eventID int64) ([]int64, error) {
	return r.getAttendeeIDs(ctx, r.db, eventID)
}

// GetAttendeeIDsForUpdate is the in-transaction variant, used together
// with the event row lock during join and leave.
func (r *AttendeeRepository) GetAttendeeIDsForUpdate(ctx context.Context, tx pgx.Tx, eventID int64) ([]int64, error) {
	return r.getAttendeeIDs(ctx, tx, eventID)
}

func (r *AttendeeRepository) getAttendeeIDs(ctx context.Context, q querier, eventID int64) ([]int64, error) {
	query := `
		SELECT user_id
		FROM event_attendees
		WHERE event_id = $1
		ORDER BY joined_at ASC, id ASC
	`

	rows, err := q.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// Attendee pairs a user with the time they joined an event
type Attendee struct {
	User     *models.User
	JoinedAt time.Time
}

// GetAttendeesByEventID returns the full roster of an event with user
// details, ordered by join time
func (r *AttendeeRepository) GetAttendeesByEventID(ctx context.Context, eventID int64) ([]*Attendee, error) {
	query := `
		SELECT u.id, u.email, u.password, u.first_name, u.last_name, u.role_type,
		       u.is_active, u.last_login_at, u.created_at, u.updated_at, ea.joined_at
		FROM event_attendees ea
		JOIN users u ON u.id = ea.user_id
		WHERE ea.event_id = $1
		ORDER BY ea.joined_at ASC, ea.id ASC
	`

	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var attendees []*Attendee
	for rows.Next() {
		var user models.User
		var joinedAt time.Time
		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Password,
			&user.FirstName,
			&user.LastName,
			&user.RoleType,
			&user.IsActive,
			&user.LastLoginAt,
			&user.CreatedAt,
			&user.UpdatedAt,
			&joinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		attendees = append(attendees, &Attendee{User: &user, JoinedAt: joinedAt})
	}

	return attendees, nil
}

// Add registers a user for an event inside a transaction. The unique
// constraint on (event_id, user_id) backstops concurrent duplicates.
func (r *AttendeeRepository) Add(ctx context.Context, tx pgx.Tx, eventID, userID int64) error {
	_, err := tx.Exec(ctx, "INSERT INTO event_attendees (event_id, user_id) VALUES ($1, $2)", eventID, userID)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// Remove unregisters a user from an event inside a transaction
func (r *AttendeeRepository) Remove(ctx context.Context, tx pgx.Tx, eventID, userID int64) error {
	result, err := tx.Exec(ctx, "DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2", eventID, userID)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("no rows affected")
	}

	return nil
}

// GetEventIDsByUserID returns the IDs of every event a user is
// registered for
func (r *AttendeeRepository) GetEventIDsByUserID(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT event_id
		FROM event_attendees
		WHERE user_id = $1
		ORDER BY joined_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// CountByEventID returns the number of registered attendees for an event
func (r *AttendeeRepository) CountByEventID(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM event_attendees WHERE event_id = $1", eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return count, nil
}
