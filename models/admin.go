package models

import "github.com/google/uuid"

// AdminRegistration is a registration row joined with its leader, event and sport
// for the admin listing.
type AdminRegistration struct {
	Registration
	Username   *string `json:"username"`
	Email      *string `json:"email"`
	EventTitle string  `json:"event_title"`
	SportName  string  `json:"sport_name"`
}

type AdminRegistrationPage struct {
	Registrations []AdminRegistration `json:"registrations"`
	Total         int                 `json:"total"`
	Page          int                 `json:"page"`
	Limit         int                 `json:"limit"`
}

type AdminTeamMember struct {
	ID         uuid.UUID  `json:"id"`
	UserID     *uuid.UUID `json:"user_id"`
	MemberName string     `json:"member_name"`
	Username   *string    `json:"username"`
}

type AdminTeam struct {
	Registration   *Registration     `json:"registration"`
	LeaderUsername *string           `json:"leader_username"`
	Members        []AdminTeamMember `json:"members"`
}

// UserDeletionResult reports what the delete-user cascade removed.
type UserDeletionResult struct {
	UserID               uuid.UUID `json:"user_id"`
	RegistrationsDeleted int       `json:"registrations_deleted"`
	MembersDeleted       int64     `json:"team_members_deleted"`
	MembershipsRemoved   int       `json:"memberships_removed"`
}
