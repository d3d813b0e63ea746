package models

import (
	"time"

	"github.com/google/uuid"
)

type RegistrationType string

const (
	RegistrationIndividual RegistrationType = "individual"
	RegistrationTeam       RegistrationType = "team"
)

type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// AcceptsRegistrations reports whether new registrations and joins are allowed.
func (s EventStatus) AcceptsRegistrations() bool {
	return s == EventUpcoming || s == EventOngoing
}

type Event struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	SportID          uuid.UUID        `json:"sport_id" db:"sport_id"`
	Title            string           `json:"title" db:"title"`
	Description      *string          `json:"description" db:"description"`
	EventDate        *time.Time       `json:"event_date" db:"event_date"`
	EventTime        *string          `json:"event_time" db:"event_time"`
	Location         *string          `json:"location" db:"location"`
	RegistrationType RegistrationType `json:"registration_type" db:"registration_type"`
	// TeamSize is the cap on participants (leader included); nil means unbounded.
	TeamSize  *int        `json:"team_size" db:"team_size"`
	Status    EventStatus `json:"status" db:"status"`
	CreatedBy *uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`

	Sport *Sport `json:"sport,omitempty" db:"-"`
}

// HasRoomFor reports whether a team of currentSize can grow by delta.
func (e *Event) HasRoomFor(currentSize, delta int) bool {
	if e.TeamSize == nil {
		return true
	}
	return currentSize+delta <= *e.TeamSize
}
