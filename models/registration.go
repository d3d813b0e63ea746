package models

import (
	"time"

	"github.com/google/uuid"
)

const RegistrationConfirmed = "confirmed"

// Registration is the root of a participation. UserID is always the leader,
// even for individual registrations; the leader never has a TeamMember row.
type Registration struct {
	ID                 uuid.UUID        `json:"id" db:"id"`
	EventID            uuid.UUID        `json:"event_id" db:"event_id"`
	UserID             uuid.UUID        `json:"user_id" db:"user_id"`
	RegistrationType   RegistrationType `json:"registration_type" db:"registration_type"`
	TeamName           string           `json:"team_name" db:"team_name"`
	LeaderMobileNumber *string          `json:"leader_mobile_number,omitempty" db:"leader_mobile_number"`
	Status             string           `json:"status" db:"status"`
	QRCodeData         string           `json:"qr_code_data" db:"qr_code_data"`
	CurrentTeamSize    int              `json:"current_team_size" db:"current_team_size"`
	TeamInviteCode     *string          `json:"team_invite_code,omitempty" db:"team_invite_code"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`

	UserRole    Role         `json:"user_role,omitempty" db:"-"`
	Event       *Event       `json:"event,omitempty" db:"-"`
	TeamMembers []TeamMember `json:"team_members,omitempty" db:"-"`
	Documents   []Document   `json:"documents,omitempty" db:"-"`
}

func (r *Registration) IsTeam() bool {
	return r.RegistrationType == RegistrationTeam
}

// DuplicateAttempt is an audit record of a blocked second registration.
type DuplicateAttempt struct {
	ID          int64     `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	EventID     uuid.UUID `json:"event_id" db:"event_id"`
	IPAddress   *string   `json:"ip_address" db:"ip_address"`
	UserAgent   *string   `json:"user_agent" db:"user_agent"`
	AttemptedAt time.Time `json:"attempted_at" db:"attempted_at"`
}
