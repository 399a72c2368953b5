package models

// RoleType defines the user role type
type RoleType string

const (
	RoleOrganizer   RoleType = "ORGANIZER"
	RoleParticipant RoleType = "PARTICIPANT"
)

// IsValid reports whether the role is one of the known roles.
func (r RoleType) IsValid() bool {
	return r == RoleOrganizer || r == RoleParticipant
}

// EventStatus represents the lifecycle state of an event
type EventStatus string

const (
	StatusUpcoming  EventStatus = "upcoming"
	StatusOngoing   EventStatus = "ongoing"
	StatusCompleted EventStatus = "completed"
	StatusCancelled EventStatus = "cancelled"
)

// IsValid reports whether the status is one of the known lifecycle states.
func (s EventStatus) IsValid() bool {
	switch s {
	case StatusUpcoming, StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// EventCategory represents the category of an event
type EventCategory string

const (
	CategoryConference EventCategory = "conference"
	CategoryWorkshop   EventCategory = "workshop"
	CategorySeminar    EventCategory = "seminar"
	CategoryNetworking EventCategory = "networking"
	CategoryOther      EventCategory = "other"
)

// IsValid reports whether the category is one of the known categories.
func (c EventCategory) IsValid() bool {
	switch c {
	case CategoryConference, CategoryWorkshop, CategorySeminar, CategoryNetworking, CategoryOther:
		return true
	}
	return false
}

// LocationType represents where an event takes place
type LocationType string

const (
	LocationPhysical LocationType = "physical"
	LocationOnline   LocationType = "online"
)

// IsValid reports whether the location type is one of the known types.
func (l LocationType) IsValid() bool {
	return l == LocationPhysical || l == LocationOnline
}
