package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so repository
// methods can run inside or outside an explicit transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository     *UserRepository
	EventRepository    *EventRepository
	AttendeeRepository *AttendeeRepository
	TokenRepository    *TokenRepository
	FileRepository     *FileRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:     NewUserRepository(db),
		EventRepository:    NewEventRepository(db),
		AttendeeRepository: NewAttendeeRepository(db),
		TokenRepository:    NewTokenRepository(db),
		FileRepository:     NewFileRepository(db),
	}
}
