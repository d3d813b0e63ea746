package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TeamMember is a non-leader participant of a team registration.
// UserID is nil for members added by name/email before they ever signed in.
type TeamMember struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	RegistrationID uuid.UUID  `json:"registration_id" db:"registration_id"`
	UserID         *uuid.UUID `json:"user_id" db:"user_id"`
	MemberName     string     `json:"member_name" db:"member_name"`
	MemberEmail    *string    `json:"member_email" db:"member_email"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

func (m *TeamMember) IsLinkedTo(userID uuid.UUID) bool {
	return m.UserID != nil && *m.UserID == userID
}

// NormalizeEmail is the single normalization used for email matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
