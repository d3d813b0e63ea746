package repositories

import (
	"context"
	"errors"

	"github.com/Dosada05/sports-registration/models"
	"github.com/google/uuid"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrTeamMemberNotFound   = errors.New("team member not found")

	ErrRegistrationConflict = errors.New("registration conflict: user already registered for this event")
	ErrTeamNameConflict     = errors.New("team name conflict for this event")
	ErrInviteCodeConflict   = errors.New("invite code conflict")
	ErrTeamMemberConflict   = errors.New("team member conflict: user already in this team")
	ErrRegistrationInvalid  = errors.New("registration references a missing event")

	// ErrLockOutsideTx is returned by LockParticipation outside WithinTx.
	ErrLockOutsideTx = errors.New("participation lock requires a transaction")

	// ErrTeamCapacityReached is returned by UpdateTeamSize when the event's
	// team size cap would be exceeded.
	ErrTeamCapacityReached = errors.New("team size cap reached")
	// ErrTeamSizeUnderflow is returned when a decrement would drop below the leader.
	ErrTeamSizeUnderflow = errors.New("team size cannot drop below one")
)

// RegistrationStore is the durable record of registrations, team members and
// invite codes. Implementations own the (user, event) and (event, team name)
// uniqueness constraints and the capacity-conditioned size update.
type RegistrationStore interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error)

	GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	FindRegistration(ctx context.Context, userID, eventID uuid.UUID) (*models.Registration, error)
	FindRegistrationByTeamName(ctx context.Context, eventID uuid.UUID, teamName string) (*models.Registration, error)
	ResolveInviteCode(ctx context.Context, code string) (*models.Registration, error)
	// HasParticipation reports whether the user leads a registration for the
	// event or is a linked member of one.
	HasParticipation(ctx context.Context, userID, eventID uuid.UUID) (bool, error)
	// ListUserRegistrations returns registrations the user leads or belongs to,
	// with UserRole filled in. Membership matches the linked user id first and
	// the normalized email second.
	ListUserRegistrations(ctx context.Context, userID uuid.UUID, email string) ([]*models.Registration, error)
	ListRegistrationsByLeader(ctx context.Context, userID uuid.UUID) ([]*models.Registration, error)

	InsertRegistration(ctx context.Context, reg *models.Registration) error
	// UpdateTeamSize atomically adds delta to current_team_size. Positive deltas
	// are conditioned on the event cap; the result never drops below one.
	UpdateTeamSize(ctx context.Context, registrationID uuid.UUID, delta int) (int, error)
	// DeleteRegistrationCascade removes the registration with its members and
	// documents and returns the number of member rows removed.
	DeleteRegistrationCascade(ctx context.Context, registrationID uuid.UUID) (int64, error)

	InsertTeamMember(ctx context.Context, member *models.TeamMember) error
	GetTeamMember(ctx context.Context, memberID uuid.UUID) (*models.TeamMember, error)
	FindTeamMemberByUser(ctx context.Context, registrationID, userID uuid.UUID) (*models.TeamMember, error)
	FindTeamMemberByEmail(ctx context.Context, registrationID uuid.UUID, email string) (*models.TeamMember, error)
	ListTeamMembers(ctx context.Context, registrationID uuid.UUID) ([]models.TeamMember, error)
	ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]models.TeamMember, error)
	DeleteTeamMember(ctx context.Context, memberID uuid.UUID) error

	RecordDuplicateAttempt(ctx context.Context, attempt *models.DuplicateAttempt) error

	// LockParticipation serializes participation changes for (user, event)
	// until the surrounding transaction ends. HasParticipation called after it
	// in the same transaction sees every committed join or registration.
	LockParticipation(ctx context.Context, userID, eventID uuid.UUID) error
	// DeleteProfile removes the user's profile row. ErrUserNotFound when absent.
	DeleteProfile(ctx context.Context, userID uuid.UUID) error

	// WithinTx runs fn against a store bound to a single transaction. fn's
	// error rolls everything back. Nested calls reuse the outer transaction.
	WithinTx(ctx context.Context, fn func(store RegistrationStore) error) error
}
