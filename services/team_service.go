package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/repositories"
	"github.com/google/uuid"
)

const (
	inviteCodeLength      = 8
	inviteCodeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteCodeMaxAttempts = 3

	qrSuffixLength   = 9
	qrSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var ErrInviteCodeGeneration = errors.New("failed to generate unique invite code")

type TeamMemberInput struct {
	MemberName  string `json:"member_name" validate:"required,max=100"`
	MemberEmail string `json:"member_email" validate:"omitempty,email,max=254"`
}

type CreateRegistrationInput struct {
	EventID            uuid.UUID         `json:"event_id"`
	TeamName           string            `json:"team_name" validate:"required,min=3,max=100"`
	LeaderMobileNumber string            `json:"leader_mobile_number"`
	TeamMembers        []TeamMemberInput `json:"team_members" validate:"omitempty,max=50,dive"`

	// Заполняются обработчиком для аудита повторных попыток.
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type JoinTeamInput struct {
	MemberName  string `json:"member_name" validate:"required,max=100"`
	MemberEmail string `json:"member_email" validate:"omitempty,email,max=254"`
}

type JoinResult struct {
	Member          *models.TeamMember `json:"member"`
	RegistrationID  uuid.UUID          `json:"registration_id"`
	TeamName        string             `json:"team_name"`
	CurrentTeamSize int                `json:"current_team_size"`
}

// ObjectCleaner removes stored objects that belong to a registration.
type ObjectCleaner interface {
	DeleteRegistrationObjects(ctx context.Context, registrationID uuid.UUID) error
}

// TeamService executes every state-changing operation on a registration.
// Each operation runs in a single store transaction; failures leave no
// partial state behind.
type TeamService interface {
	CreateRegistration(ctx context.Context, identity models.Identity, input CreateRegistrationInput) (*models.Registration, error)
	JoinViaInvite(ctx context.Context, identity models.Identity, code string, input JoinTeamInput) (*JoinResult, error)
	ExitTeam(ctx context.Context, registrationID uuid.UUID, identity models.Identity) error
	DeleteTeam(ctx context.Context, registrationID uuid.UUID, identity models.Identity) error
	RemoveTeamMember(ctx context.Context, memberID uuid.UUID, identity models.Identity) (*models.TeamMember, error)
}

type teamService struct {
	store   repositories.RegistrationStore
	objects ObjectCleaner
	logger  *slog.Logger
}

// NewTeamService; objects may be nil when document storage is disabled.
func NewTeamService(store repositories.RegistrationStore, objects ObjectCleaner, logger *slog.Logger) TeamService {
	return &teamService{
		store:   store,
		objects: objects,
		logger:  logger,
	}
}

func randomString(alphabet string, length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

func generateInviteCode() (string, error) {
	return randomString(inviteCodeAlphabet, inviteCodeLength)
}

// generateQRCodeData returns REG-<unix millis>-<9 base36 chars>.
func generateQRCodeData(now time.Time) (string, error) {
	suffix, err := randomString(qrSuffixAlphabet, qrSuffixLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("REG-%d-%s", now.UnixMilli(), suffix), nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *teamService) CreateRegistration(ctx context.Context, identity models.Identity, input CreateRegistrationInput) (*models.Registration, error) {
	input.TeamName = strings.TrimSpace(input.TeamName)
	input.LeaderMobileNumber = strings.TrimSpace(input.LeaderMobileNumber)
	if input.EventID == uuid.Nil {
		return nil, fieldError("event_id", "event_id is required")
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	event, err := s.store.GetEvent(ctx, input.EventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %s: %w", input.EventID, err)
	}
	if !event.Status.AcceptsRegistrations() {
		return nil, ErrRegistrationClosed
	}

	isTeam := event.RegistrationType == models.RegistrationTeam
	if isTeam {
		if err := validateMobile(input.LeaderMobileNumber); err != nil {
			return nil, err
		}
	} else if len(input.TeamMembers) > 0 {
		return nil, fieldError("team_members", "team members are only accepted for team events")
	}

	// Участники, добавленные при создании, учитываются в лимите команды.
	if !event.HasRoomFor(1, len(input.TeamMembers)) {
		return nil, ErrTeamFull
	}

	// Быстрая проверка; источник истины - уникальный индекс (user_id, event_id).
	if _, err := s.store.FindRegistration(ctx, identity.ID, event.ID); err == nil {
		s.recordDuplicateAttempt(ctx, identity.ID, event.ID, input)
		return nil, ErrDuplicateRegistration
	} else if !errors.Is(err, repositories.ErrRegistrationNotFound) {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}

	joined, err := s.store.HasParticipation(ctx, identity.ID, event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participation: %w", err)
	}
	if joined {
		// Лидер мог успеть зарегистрироваться параллельно после первой проверки.
		if _, err := s.store.FindRegistration(ctx, identity.ID, event.ID); err == nil {
			s.recordDuplicateAttempt(ctx, identity.ID, event.ID, input)
			return nil, ErrDuplicateRegistration
		}
		return nil, ErrAlreadyRegistered
	}

	if _, err := s.store.FindRegistrationByTeamName(ctx, event.ID, input.TeamName); err == nil {
		return nil, ErrDuplicateTeamName
	} else if !errors.Is(err, repositories.ErrRegistrationNotFound) {
		return nil, fmt.Errorf("failed to check team name: %w", err)
	}

	for attempt := 0; attempt < inviteCodeMaxAttempts; attempt++ {
		reg, err := s.insertRegistration(ctx, identity, event, input)
		if err == nil {
			s.logger.InfoContext(ctx, "Registration created",
				slog.String("registration_id", reg.ID.String()),
				slog.String("event_id", event.ID.String()),
				slog.String("user_id", identity.ID.String()),
				slog.Int("team_size", reg.CurrentTeamSize),
			)
			return reg, nil
		}

		switch {
		case errors.Is(err, repositories.ErrInviteCodeConflict):
			// Конфликт кода приглашения, пробуем снова
			continue
		case errors.Is(err, repositories.ErrRegistrationConflict):
			s.recordDuplicateAttempt(ctx, identity.ID, event.ID, input)
			return nil, ErrDuplicateRegistration
		case errors.Is(err, repositories.ErrTeamNameConflict):
			return nil, ErrDuplicateTeamName
		case errors.Is(err, repositories.ErrTeamCapacityReached):
			return nil, ErrTeamFull
		case errors.Is(err, ErrAlreadyRegistered):
			return nil, ErrAlreadyRegistered
		case errors.Is(err, repositories.ErrRegistrationInvalid):
			return nil, ErrEventNotFound
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, fmt.Errorf("failed to create registration: %w", err)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrInviteCodeGeneration, inviteCodeMaxAttempts)
}

func (s *teamService) insertRegistration(ctx context.Context, identity models.Identity, event *models.Event, input CreateRegistrationInput) (*models.Registration, error) {
	qrData, err := generateQRCodeData(time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate qr code data: %w", err)
	}

	reg := &models.Registration{
		EventID:          event.ID,
		UserID:           identity.ID,
		RegistrationType: event.RegistrationType,
		TeamName:         input.TeamName,
		Status:           models.RegistrationConfirmed,
		QRCodeData:       qrData,
		CurrentTeamSize:  1,
	}
	if reg.IsTeam() {
		code, err := generateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInviteCodeGeneration, err)
		}
		reg.TeamInviteCode = &code
		reg.LeaderMobileNumber = optionalString(input.LeaderMobileNumber)
	}

	err = s.store.WithinTx(ctx, func(tx repositories.RegistrationStore) error {
		// Повторная проверка под блокировкой (user, event): параллельный join
		// в другую команду мог завершиться после проверок выше.
		if err := tx.LockParticipation(ctx, identity.ID, event.ID); err != nil {
			return err
		}
		joined, err := tx.HasParticipation(ctx, identity.ID, event.ID)
		if err != nil {
			return fmt.Errorf("failed to check participation: %w", err)
		}
		if joined {
			if _, err := tx.FindRegistration(ctx, identity.ID, event.ID); err == nil {
				return repositories.ErrRegistrationConflict
			}
			return ErrAlreadyRegistered
		}

		if err := tx.InsertRegistration(ctx, reg); err != nil {
			return err
		}
		if len(input.TeamMembers) == 0 {
			return nil
		}

		reg.TeamMembers = make([]models.TeamMember, 0, len(input.TeamMembers))
		for _, in := range input.TeamMembers {
			member := &models.TeamMember{
				RegistrationID: reg.ID,
				MemberName:     strings.TrimSpace(in.MemberName),
				MemberEmail:    optionalString(in.MemberEmail),
			}
			if err := tx.InsertTeamMember(ctx, member); err != nil {
				return err
			}
			reg.TeamMembers = append(reg.TeamMembers, *member)
		}

		size, err := tx.UpdateTeamSize(ctx, reg.ID, len(input.TeamMembers))
		if err != nil {
			return err
		}
		reg.CurrentTeamSize = size
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *teamService) recordDuplicateAttempt(ctx context.Context, userID, eventID uuid.UUID, input CreateRegistrationInput) {
	s.logger.WarnContext(ctx, "Duplicate registration attempt blocked",
		slog.String("user_id", userID.String()),
		slog.String("event_id", eventID.String()),
		slog.String("ip_address", input.IPAddress),
	)

	attempt := &models.DuplicateAttempt{
		UserID:    userID,
		EventID:   eventID,
		IPAddress: optionalString(input.IPAddress),
		UserAgent: optionalString(input.UserAgent),
	}
	if err := s.store.RecordDuplicateAttempt(ctx, attempt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record duplicate attempt",
			slog.String("user_id", userID.String()),
			slog.Any("error", err),
		)
	}
}

func (s *teamService) JoinViaInvite(ctx context.Context, identity models.Identity, code string, input JoinTeamInput) (*JoinResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrInvalidInviteCode
	}
	input.MemberName = strings.TrimSpace(input.MemberName)
	input.MemberEmail = strings.TrimSpace(input.MemberEmail)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	email := input.MemberEmail
	if email == "" {
		email = identity.Email
	}

	reg, err := s.store.ResolveInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to resolve invite code: %w", err)
	}

	event, err := s.store.GetEvent(ctx, reg.EventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to get event %s: %w", reg.EventID, err)
	}
	if !event.Status.AcceptsRegistrations() {
		return nil, ErrRegistrationClosed
	}

	result := &JoinResult{RegistrationID: reg.ID, TeamName: reg.TeamName}
	err = s.store.WithinTx(ctx, func(tx repositories.RegistrationStore) error {
		if err := tx.LockParticipation(ctx, identity.ID, reg.EventID); err != nil {
			return err
		}
		registered, err := tx.HasParticipation(ctx, identity.ID, reg.EventID)
		if err != nil {
			return fmt.Errorf("failed to check participation: %w", err)
		}
		if registered {
			return ErrAlreadyRegistered
		}
		// Участник, добавленный лидером по email, уже состоит в команде.
		if _, err := tx.FindTeamMemberByEmail(ctx, reg.ID, identity.Email); err == nil {
			return ErrAlreadyRegistered
		} else if !errors.Is(err, repositories.ErrTeamMemberNotFound) {
			return fmt.Errorf("failed to check member email: %w", err)
		}

		size, err := tx.UpdateTeamSize(ctx, reg.ID, 1)
		if err != nil {
			return err
		}

		member := &models.TeamMember{
			RegistrationID: reg.ID,
			UserID:         &identity.ID,
			MemberName:     input.MemberName,
			MemberEmail:    optionalString(email),
		}
		if err := tx.InsertTeamMember(ctx, member); err != nil {
			return err
		}

		result.Member = member
		result.CurrentTeamSize = size
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyRegistered), errors.Is(err, repositories.ErrTeamMemberConflict):
			return nil, ErrAlreadyRegistered
		case errors.Is(err, repositories.ErrTeamCapacityReached):
			return nil, ErrTeamFull
		case errors.Is(err, repositories.ErrRegistrationNotFound):
			return nil, ErrInvalidInviteCode
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, fmt.Errorf("failed to join team: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "Member joined team",
		slog.String("registration_id", reg.ID.String()),
		slog.String("user_id", identity.ID.String()),
		slog.Int("team_size", result.CurrentTeamSize),
	)
	return result, nil
}

func (s *teamService) ExitTeam(ctx context.Context, registrationID uuid.UUID, identity models.Identity) error {
	err := s.store.WithinTx(ctx, func(tx repositories.RegistrationStore) error {
		access, _, err := resolveAccess(ctx, tx, registrationID, identity)
		if err != nil {
			return err
		}
		if access.IsLeader {
			return ErrCannotExitAsLeader
		}
		if !access.IsMember {
			return ErrNotATeamMember
		}

		if err := tx.DeleteTeamMember(ctx, *access.MemberID); err != nil {
			if errors.Is(err, repositories.ErrTeamMemberNotFound) {
				return ErrNotATeamMember
			}
			return err
		}
		_, err = tx.UpdateTeamSize(ctx, registrationID, -1)
		return err
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return err
		}
		return fmt.Errorf("failed to exit team: %w", err)
	}

	s.logger.InfoContext(ctx, "Member exited team",
		slog.String("registration_id", registrationID.String()),
		slog.String("user_id", identity.ID.String()),
	)
	return nil
}

func (s *teamService) DeleteTeam(ctx context.Context, registrationID uuid.UUID, identity models.Identity) error {
	var membersDeleted int64
	err := s.store.WithinTx(ctx, func(tx repositories.RegistrationStore) error {
		reg, err := tx.GetRegistration(ctx, registrationID)
		if err != nil {
			if errors.Is(err, repositories.ErrRegistrationNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if reg.UserID != identity.ID {
			return ErrForbidden
		}

		membersDeleted, err = tx.DeleteRegistrationCascade(ctx, registrationID)
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrTeamNotFound
		}
		return err
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return err
		}
		return fmt.Errorf("failed to delete team: %w", err)
	}

	s.logger.InfoContext(ctx, "Team deleted",
		slog.String("registration_id", registrationID.String()),
		slog.String("user_id", identity.ID.String()),
		slog.Int64("members_deleted", membersDeleted),
	)
	cleanupRegistrationObjects(ctx, s.objects, s.logger, registrationID)
	return nil
}

// cleanupRegistrationObjects is best-effort; the registration rows are already gone.
func cleanupRegistrationObjects(ctx context.Context, objects ObjectCleaner, logger *slog.Logger, registrationID uuid.UUID) {
	if objects == nil {
		return
	}
	if err := objects.DeleteRegistrationObjects(ctx, registrationID); err != nil {
		logger.WarnContext(ctx, "Failed to remove registration documents from storage",
			slog.String("registration_id", registrationID.String()),
			slog.Any("error", err),
		)
	}
}

func (s *teamService) RemoveTeamMember(ctx context.Context, memberID uuid.UUID, identity models.Identity) (*models.TeamMember, error) {
	var removed *models.TeamMember
	err := s.store.WithinTx(ctx, func(tx repositories.RegistrationStore) error {
		member, err := tx.GetTeamMember(ctx, memberID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamMemberNotFound) {
				return ErrMemberNotFound
			}
			return err
		}

		reg, err := tx.GetRegistration(ctx, member.RegistrationID)
		if err != nil {
			if errors.Is(err, repositories.ErrRegistrationNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if reg.UserID != identity.ID {
			return ErrForbidden
		}
		if member.IsLinkedTo(reg.UserID) {
			return ErrCannotRemoveLeader
		}

		if err := tx.DeleteTeamMember(ctx, member.ID); err != nil {
			if errors.Is(err, repositories.ErrTeamMemberNotFound) {
				return ErrMemberNotFound
			}
			return err
		}
		if _, err := tx.UpdateTeamSize(ctx, reg.ID, -1); err != nil {
			return err
		}
		removed = member
		return nil
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to remove team member: %w", err)
	}

	s.logger.InfoContext(ctx, "Team member removed",
		slog.String("registration_id", removed.RegistrationID.String()),
		slog.String("member_id", removed.ID.String()),
		slog.String("removed_by", identity.ID.String()),
	)
	return removed, nil
}
