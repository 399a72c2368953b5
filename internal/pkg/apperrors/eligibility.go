package apperrors

// DenialReason identifies why a join or leave request was refused.
// Reasons are surfaced verbatim to the caller so the client can render
// a specific message.
type DenialReason string

const (
	ReasonAlreadyRegistered DenialReason = "already_registered"
	ReasonEventFull         DenialReason = "event_full"
	ReasonNotUpcoming       DenialReason = "not_upcoming"
	ReasonDeadlinePassed    DenialReason = "deadline_passed"
	ReasonNotRegistered     DenialReason = "not_registered"
)

var denialMessages = map[DenialReason]string{
	ReasonAlreadyRegistered: "already registered for this event",
	ReasonEventFull:         "event is full",
	ReasonNotUpcoming:       "event is not open for registration changes",
	ReasonDeadlinePassed:    "registration deadline has passed",
	ReasonNotRegistered:     "not registered for this event",
}

// EligibilityError reports that a user may not join or leave an event.
// It is not a system fault; the reason is part of the API contract.
type EligibilityError struct {
	Reason DenialReason
}

// Error implements the error interface
func (e *EligibilityError) Error() string {
	if msg, ok := denialMessages[e.Reason]; ok {
		return msg
	}
	return string(e.Reason)
}

// NewEligibilityError creates an EligibilityError with the given reason
func NewEligibilityError(reason DenialReason) *EligibilityError {
	return &EligibilityError{Reason: reason}
}
