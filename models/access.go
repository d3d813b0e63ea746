package models

import "github.com/google/uuid"

// Role is derived per (registration, user) and never stored.
type Role string

const (
	RoleNone   Role = ""
	RoleLeader Role = "Leader"
	RoleMember Role = "Member"
)

type AccessResult struct {
	RegistrationID uuid.UUID  `json:"registration_id"`
	Role           Role       `json:"role"`
	Granted        bool       `json:"access_granted"`
	IsLeader       bool       `json:"is_leader"`
	IsMember       bool       `json:"is_member"`
	MemberID       *uuid.UUID `json:"member_id,omitempty"`
	// MatchedByEmail is set when membership resolved through the email fallback.
	MatchedByEmail bool `json:"matched_by_email,omitempty"`
}
