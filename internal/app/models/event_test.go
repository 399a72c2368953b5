package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emre/eventhub/internal/pkg/apperrors"
)

// eventAt builds an event whose start instant is now+offset, on the
// calendar day that instant falls on.
func eventAt(now time.Time, offset time.Duration) *Event {
	start := now.Add(offset)
	return &Event{
		Title:        "Go Meetup",
		Description:  "Monthly meetup",
		Location:     "Main Hall",
		LocationType: LocationPhysical,
		Category:     CategoryNetworking,
		Date:         time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()),
		Time:         fmt.Sprintf("%02d:%02d", start.Hour(), start.Minute()),
		OrganizerID:  1,
		Price:        decimal.Zero,
		Status:       StatusUpcoming,
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		clock   string
		hour    int
		minute  int
		wantErr bool
	}{
		{clock: "00:00", hour: 0, minute: 0},
		{clock: "09:05", hour: 9, minute: 5},
		{clock: "23:59", hour: 23, minute: 59},
		{clock: "24:00", wantErr: true},
		{clock: "12:60", wantErr: true},
		{clock: "ab:cd", wantErr: true},
		{clock: "12", wantErr: true},
		{clock: "", wantErr: true},
		{clock: "12:30:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			hour, minute, err := ParseClock(tt.clock)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, hour)
			assert.Equal(t, tt.minute, minute)
		})
	}
}

func TestDeriveStatus_MalformedTime(t *testing.T) {
	e := eventAt(time.Now(), time.Hour)
	e.Time = "noon"

	_, err := e.DeriveStatus(time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestDeriveStatus_CancelledIsSticky(t *testing.T) {
	offsets := []time.Duration{-48 * time.Hour, -time.Minute, time.Hour, 72 * time.Hour}
	for _, offset := range offsets {
		now := time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)
		e := eventAt(now, offset)
		e.Status = StatusCancelled

		status, err := e.DeriveStatus(now)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, status, "offset %v", offset)
	}
}

func TestDeriveStatus_PastEventIsCompleted(t *testing.T) {
	now := time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		offset time.Duration
	}{
		{name: "yesterday", offset: -24 * time.Hour},
		{name: "last week", offset: -7 * 24 * time.Hour},
		{name: "earlier today", offset: -30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := eventAt(now, tt.offset)
			// Stored status is ignored unless cancelled.
			e.Status = StatusUpcoming

			status, err := e.DeriveStatus(now)
			require.NoError(t, err)
			assert.Equal(t, StatusCompleted, status)
		})
	}
}

func TestDeriveStatus_OngoingWindow(t *testing.T) {
	now := time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		offset time.Duration
		want   EventStatus
	}{
		{name: "starts in 30 minutes", offset: 30 * time.Minute, want: StatusOngoing},
		{name: "starts in exactly two hours", offset: 2 * time.Hour, want: StatusOngoing},
		{name: "starts later today", offset: 3 * time.Hour, want: StatusUpcoming},
		{name: "starts in one minute", offset: time.Minute, want: StatusOngoing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := eventAt(now, tt.offset)

			status, err := e.DeriveStatus(now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestDeriveStatus_FutureDayIsUpcoming(t *testing.T) {
	now := time.Date(2026, 5, 15, 23, 30, 0, 0, time.UTC)

	// Starts in 90 minutes but on the next calendar day, so the ongoing
	// window does not apply.
	e := eventAt(now, 90*time.Minute)

	status, err := e.DeriveStatus(now)
	require.NoError(t, err)
	assert.Equal(t, StatusUpcoming, status)
}

func TestDeriveStatus_Idempotent(t *testing.T) {
	now := time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC)
	e := eventAt(now, 45*time.Minute)

	first, err := e.DeriveStatus(now)
	require.NoError(t, err)
	second, err := e.DeriveStatus(now)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCanJoin(t *testing.T) {
	now := time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC)
	cap2 := 2
	yesterday := now.Add(-24 * time.Hour)

	tests := []struct {
		name       string
		setup      func(e *Event)
		userID     int64
		wantReason apperrors.DenialReason
	}{
		{
			name:   "allowed",
			setup:  func(e *Event) {},
			userID: 7,
		},
		{
			name:       "already registered",
			setup:      func(e *Event) { e.AttendeeIDs = []int64{7} },
			userID:     7,
			wantReason: apperrors.ReasonAlreadyRegistered,
		},
		{
			name: "full",
			setup: func(e *Event) {
				e.MaxAttendees = &cap2
				e.AttendeeIDs = []int64{3, 4}
			},
			userID:     7,
			wantReason: apperrors.ReasonEventFull,
		},
		{
			name:       "cancelled event",
			setup:      func(e *Event) { e.Status = StatusCancelled },
			userID:     7,
			wantReason: apperrors.ReasonNotUpcoming,
		},
		{
			name:       "past deadline",
			setup:      func(e *Event) { e.RegistrationDeadline = &yesterday },
			userID:     7,
			wantReason: apperrors.ReasonDeadlinePassed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Starts tomorrow so derived status is upcoming unless the
			// case overrides it.
			e := eventAt(now, 26*time.Hour)
			tt.setup(e)

			err := e.CanJoin(tt.userID, now)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}

			var denial *apperrors.EligibilityError
			require.ErrorAs(t, err, &denial)
			assert.Equal(t, tt.wantReason, denial.Reason)
		})
	}
}

func TestCanJoin_OngoingEventDenied(t *testing.T) {
	now := time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC)
	e := eventAt(now, 30*time.Minute)

	err := e.CanJoin(7, now)
	var denial *apperrors.EligibilityError
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, apperrors.ReasonNotUpcoming, denial.Reason)
}

func TestCanLeave(t *testing.T) {
	now := time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC)

	t.Run("allowed for upcoming event", func(t *testing.T) {
		e := eventAt(now, 26*time.Hour)
		e.AttendeeIDs = []int64{7}
		assert.NoError(t, e.CanLeave(7, now))
	})

	t.Run("denied when not registered", func(t *testing.T) {
		e := eventAt(now, 26*time.Hour)

		err := e.CanLeave(7, now)
		var denial *apperrors.EligibilityError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, apperrors.ReasonNotRegistered, denial.Reason)
	})

	t.Run("denied once event is ongoing", func(t *testing.T) {
		e := eventAt(now, 30*time.Minute)
		e.AttendeeIDs = []int64{7}

		err := e.CanLeave(7, now)
		var denial *apperrors.EligibilityError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, apperrors.ReasonNotUpcoming, denial.Reason)
	})

	t.Run("denied for completed event", func(t *testing.T) {
		e := eventAt(now, -24*time.Hour)
		e.AttendeeIDs = []int64{7}

		err := e.CanLeave(7, now)
		var denial *apperrors.EligibilityError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, apperrors.ReasonNotUpcoming, denial.Reason)
	})
}

func TestCapacityRoundTrip(t *testing.T) {
	now := time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC)
	cap2 := 2

	e := eventAt(now, 26*time.Hour)
	e.MaxAttendees = &cap2
	e.AttendeeIDs = []int64{1, 2}

	// Full: C is refused.
	err := e.CanJoin(3, now)
	var denial *apperrors.EligibilityError
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, apperrors.ReasonEventFull, denial.Reason)

	// A leaves, freeing a slot.
	require.NoError(t, e.CanLeave(1, now))
	e.ApplyLeave(1)

	require.NoError(t, e.CanJoin(3, now))
	e.ApplyJoin(3)
	assert.Equal(t, []int64{2, 3}, e.AttendeeIDs)
}

func TestApplyJoin_OrderPreservingNoDuplicates(t *testing.T) {
	e := &Event{}
	e.ApplyJoin(5)
	e.ApplyJoin(9)
	e.ApplyJoin(5)
	e.ApplyJoin(2)

	assert.Equal(t, []int64{5, 9, 2}, e.AttendeeIDs)

	e.ApplyLeave(9)
	assert.Equal(t, []int64{5, 2}, e.AttendeeIDs)

	// Removing an absent user is a no-op.
	e.ApplyLeave(42)
	assert.Equal(t, []int64{5, 2}, e.AttendeeIDs)
}

func TestVisibleTo(t *testing.T) {
	e := &Event{OrganizerID: 1, AttendeeIDs: []int64{5}}

	t.Run("public event", func(t *testing.T) {
		assert.True(t, e.VisibleTo(0))
		assert.True(t, e.VisibleTo(99))
	})

	t.Run("private event", func(t *testing.T) {
		e.IsPrivate = true
		assert.False(t, e.VisibleTo(0), "anonymous")
		assert.False(t, e.VisibleTo(99), "unrelated user")
		assert.True(t, e.VisibleTo(1), "organizer")
		assert.True(t, e.VisibleTo(5), "attendee")
	})
}

func TestEventValidate(t *testing.T) {
	now := time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC)
	negative := -3

	tests := []struct {
		name  string
		setup func(e *Event)
		field string
	}{
		{name: "valid", setup: func(e *Event) {}},
		{name: "empty title", setup: func(e *Event) { e.Title = "  " }, field: "title"},
		{name: "empty description", setup: func(e *Event) { e.Description = "" }, field: "description"},
		{name: "empty location", setup: func(e *Event) { e.Location = "" }, field: "location"},
		{name: "zero date", setup: func(e *Event) { e.Date = time.Time{} }, field: "date"},
		{name: "bad time", setup: func(e *Event) { e.Time = "25:00" }, field: "time"},
		{name: "bad location type", setup: func(e *Event) { e.LocationType = "hybrid" }, field: "locationType"},
		{name: "bad category", setup: func(e *Event) { e.Category = "party" }, field: "category"},
		{name: "non-positive cap", setup: func(e *Event) { e.MaxAttendees = &negative }, field: "maxAttendees"},
		{name: "negative price", setup: func(e *Event) { e.Price = decimal.NewFromInt(-10) }, field: "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := eventAt(now, 26*time.Hour)
			tt.setup(e)

			err := e.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
			var ce *apperrors.CustomError
			if errors.As(err, &ce) {
				assert.Equal(t, tt.field, ce.Field)
			}
		})
	}
}
