package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/emre/eventhub/internal/app/models/dto"
	"github.com/emre/eventhub/internal/app/repositories"
	"github.com/emre/eventhub/internal/pkg/apperrors"
	"github.com/emre/eventhub/internal/pkg/auth"
	"github.com/emre/eventhub/internal/pkg/validation"
)

// UserService defines the interface for user profile operations
type UserService interface {
	GetProfile(ctx context.Context, userID int64) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID int64, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	userRepo     *repositories.UserRepository
	eventService EventService
	logger       zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userRepo *repositories.UserRepository,
	eventService EventService,
	logger zerolog.Logger,
) UserService {
	return &userServiceImpl{
		userRepo:     userRepo,
		eventService: eventService,
		logger:       logger,
	}
}

// GetProfile returns the user together with the events they organize
// and the events they attend
func (s *userServiceImpl) GetProfile(ctx context.Context, userID int64) (*dto.ProfileResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}

	created, err := s.eventService.GetEventsByOrganizer(ctx, userID, userID)
	if err != nil {
		return nil, err
	}

	attending, err := s.eventService.GetEventsAttending(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.ProfileResponse{
		UserResponse: dto.UserResponse{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Role:      string(user.RoleType),
		},
		EventsCreated:   created,
		EventsAttending: attending,
		CreatedAt:       user.CreatedAt,
		LastLoginAt:     user.LastLoginAt,
	}, nil
}

// UpdateProfile updates the user's name and email
func (s *userServiceImpl) UpdateProfile(ctx context.Context, userID int64, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !validation.CompiledPatterns.Email.MatchString(email) {
		return nil, apperrors.NewValidationError("email", "email address is not valid")
	}

	if email != user.Email {
		exists, err := s.userRepo.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("error checking email: %w", err)
		}
		if exists {
			return nil, apperrors.ErrEmailAlreadyExists
		}
	}

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)

	if err := s.userRepo.UpdateProfile(ctx, userID, firstName, lastName, email); err != nil {
		return nil, fmt.Errorf("error updating profile: %w", err)
	}

	return &dto.UserResponse{
		ID:        user.ID,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      string(user.RoleType),
	}, nil
}

// ChangePassword verifies the current password and replaces it
func (s *userServiceImpl) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return apperrors.ErrUserNotFound
	}

	if !auth.CheckPassword(user.Password, req.CurrentPassword) {
		return apperrors.ErrInvalidCredentials
	}

	hashedPassword, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	s.logger.Info().Int64("userID", userID).Msg("Password changed")

	return nil
}
