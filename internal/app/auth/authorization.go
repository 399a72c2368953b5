package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/emre/eventhub/internal/app/models"
	"github.com/emre/eventhub/internal/app/repositories"
	"github.com/emre/eventhub/internal/pkg/apperrors"
	"github.com/emre/eventhub/internal/pkg/logger"
)

// Common errors specific to authorization that aren't in the central apperrors
var (
	ErrNotOrganizer = errors.New("only organizers can perform this action")
)

// AuthorizationService handles authorization operations
type AuthorizationService struct {
	userRepo  *repositories.UserRepository
	eventRepo *repositories.EventRepository
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(userRepo *repositories.UserRepository, eventRepo *repositories.EventRepository) *AuthorizationService {
	return &AuthorizationService{
		userRepo:  userRepo,
		eventRepo: eventRepo,
	}
}

// IsOrganizer checks if the user holds the organizer role
func (s *AuthorizationService) IsOrganizer(ctx context.Context, userID int64) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error getting user by ID in IsOrganizer")
		return false, err
	}
	if user == nil {
		return false, apperrors.ErrUserNotFound
	}
	return user.RoleType == models.RoleOrganizer, nil
}

// ValidateOrganizer validates that the user holds the organizer role
func (s *AuthorizationService) ValidateOrganizer(ctx context.Context, userID int64) error {
	isOrganizer, err := s.IsOrganizer(ctx, userID)
	if err != nil {
		return err
	}

	if !isOrganizer {
		return apperrors.NewForbiddenError(ErrNotOrganizer.Error())
	}

	return nil
}

// CanModifyEvent checks if the user may edit or delete an event. Only
// the creating organizer may.
func (s *AuthorizationService) CanModifyEvent(ctx context.Context, eventID, userID int64) (bool, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("error getting event: %w", err)
	}
	if event == nil {
		return false, apperrors.ErrEventNotFound
	}

	return event.OrganizerID == userID, nil
}

// ValidateEventOwnership validates that the user created the event
func (s *AuthorizationService) ValidateEventOwnership(ctx context.Context, eventID, userID int64) error {
	canModify, err := s.CanModifyEvent(ctx, eventID, userID)
	if err != nil {
		return err
	}

	if !canModify {
		return apperrors.ErrPermissionDenied
	}

	return nil
}
