package dto

import "time"

// UserResponse represents basic user information
type UserResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// ProfileResponse represents the authenticated user's profile together
// with the events they organize and attend
type ProfileResponse struct {
	UserResponse
	EventsCreated   []EventResponse `json:"eventsCreated"`
	EventsAttending []EventResponse `json:"eventsAttending"`
	CreatedAt       time.Time       `json:"createdAt"`
	LastLoginAt     *time.Time      `json:"lastLoginAt,omitempty"`
}

// UpdateProfileRequest represents profile update data
type UpdateProfileRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}
