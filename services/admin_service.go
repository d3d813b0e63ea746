package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/repositories"
	"github.com/google/uuid"
)

const (
	defaultAdminPageSize = 20
	maxAdminPageSize     = 100
)

var ErrCannotDeleteSelf = newError(CodeForbidden, "admins cannot delete their own account")

type EventInput struct {
	SportID          uuid.UUID `json:"sport_id"`
	Title            string    `json:"title" validate:"required,max=200"`
	Description      *string   `json:"description" validate:"omitempty,max=5000"`
	EventDate        *string   `json:"event_date" validate:"omitempty,datetime=2006-01-02"`
	EventTime        *string   `json:"event_time" validate:"omitempty,max=50"`
	Location         *string   `json:"location" validate:"omitempty,max=300"`
	RegistrationType string    `json:"registration_type" validate:"required,oneof=individual team"`
	TeamSize         *int      `json:"team_size" validate:"omitempty,gte=1,lte=100"`
	Status           string    `json:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
}

type AdminRegistrationQuery struct {
	SportID *uuid.UUID
	Search  string
	SortBy  string
	Order   string
	Page    int
	Limit   int
}

type UpdateRoleInput struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type AdminService interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)

	CreateEvent(ctx context.Context, identity models.Identity, input EventInput) (*models.Event, error)
	UpdateEvent(ctx context.Context, eventID uuid.UUID, input EventInput) (*models.Event, error)
	DeleteEvent(ctx context.Context, eventID uuid.UUID, force bool) error

	ListRegistrations(ctx context.Context, query AdminRegistrationQuery) (*models.AdminRegistrationPage, error)
	TeamsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.AdminRegistration, error)
	GetTeamDetails(ctx context.Context, registrationID uuid.UUID) (*models.AdminTeam, error)
	DeleteRegistration(ctx context.Context, registrationID uuid.UUID) error

	ListProfiles(ctx context.Context) ([]models.Profile, error)
	UpdateUserRole(ctx context.Context, userID uuid.UUID, input UpdateRoleInput) (*models.Profile, error)
	DeleteUser(ctx context.Context, identity models.Identity, userID uuid.UUID) (*models.UserDeletionResult, error)
}

type adminService struct {
	store     repositories.RegistrationStore
	eventRepo repositories.EventRepository
	userRepo  repositories.UserRepository
	adminRepo repositories.AdminRepository
	objects   ObjectCleaner
	logger    *slog.Logger
}

func NewAdminService(
	store repositories.RegistrationStore,
	eventRepo repositories.EventRepository,
	userRepo repositories.UserRepository,
	adminRepo repositories.AdminRepository,
	objects ObjectCleaner,
	logger *slog.Logger,
) AdminService {
	return &adminService{
		store:     store,
		eventRepo: eventRepo,
		userRepo:  userRepo,
		adminRepo: adminRepo,
		objects:   objects,
		logger:    logger,
	}
}

func (s *adminService) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	profile, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get profile %s: %w", userID, err)
	}
	return profile.Role == models.RoleAdmin, nil
}

func eventFromInput(input EventInput, event *models.Event) error {
	input.Title = strings.TrimSpace(input.Title)
	if input.SportID == uuid.Nil {
		return fieldError("sport_id", "sport_id is required")
	}
	if err := validateStruct(input); err != nil {
		return err
	}

	event.SportID = input.SportID
	event.Title = input.Title
	event.Description = input.Description
	event.EventTime = input.EventTime
	event.Location = input.Location
	event.RegistrationType = models.RegistrationType(input.RegistrationType)
	event.TeamSize = input.TeamSize
	event.EventDate = nil
	if input.EventDate != nil {
		date, err := time.Parse("2006-01-02", *input.EventDate)
		if err != nil {
			return fieldError("event_date", "event_date must be in YYYY-MM-DD format")
		}
		event.EventDate = &date
	}
	if input.Status != "" {
		event.Status = models.EventStatus(input.Status)
	}
	if event.Status == "" {
		event.Status = models.EventUpcoming
	}
	return nil
}

func (s *adminService) CreateEvent(ctx context.Context, identity models.Identity, input EventInput) (*models.Event, error) {
	event := &models.Event{CreatedBy: &identity.ID}
	if err := eventFromInput(input, event); err != nil {
		return nil, err
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		if errors.Is(err, repositories.ErrEventSportInvalid) {
			return nil, ErrSportNotFound
		}
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.InfoContext(ctx, "Event created",
		slog.String("event_id", event.ID.String()),
		slog.String("created_by", identity.ID.String()),
	)
	return event, nil
}

func (s *adminService) UpdateEvent(ctx context.Context, eventID uuid.UUID, input EventInput) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}
	if err := eventFromInput(input, event); err != nil {
		return nil, err
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		switch {
		case errors.Is(err, repositories.ErrEventNotFound):
			return nil, ErrEventNotFound
		case errors.Is(err, repositories.ErrEventSportInvalid):
			return nil, ErrSportNotFound
		default:
			return nil, fmt.Errorf("failed to update event: %w", err)
		}
	}
	event.Sport = nil
	return event, nil
}

// DeleteEvent refuses events with registrations unless force is set; forced
// deletes cascade to registrations and their members.
func (s *adminService) DeleteEvent(ctx context.Context, eventID uuid.UUID, force bool) error {
	if !force {
		count, err := s.eventRepo.CountRegistrations(ctx, eventID)
		if err != nil {
			return fmt.Errorf("failed to count registrations: %w", err)
		}
		if count > 0 {
			return ErrEventInUse
		}
	}

	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}

	s.logger.InfoContext(ctx, "Event deleted",
		slog.String("event_id", eventID.String()),
		slog.Bool("force", force),
	)
	return nil
}

func (s *adminService) ListRegistrations(ctx context.Context, query AdminRegistrationQuery) (*models.AdminRegistrationPage, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = defaultAdminPageSize
	}
	if query.Limit > maxAdminPageSize {
		query.Limit = maxAdminPageSize
	}
	sortBy := strings.ToLower(strings.TrimSpace(query.SortBy))
	if err := validate.Var(sortBy, "omitempty,oneof=date name sport"); err != nil {
		return nil, fieldError("sort_by", "sort_by must be one of: date name sport")
	}

	rows, total, err := s.adminRepo.ListRegistrations(ctx, repositories.AdminRegistrationFilter{
		SportID:  query.SportID,
		Search:   query.Search,
		SortBy:   sortBy,
		SortDesc: !strings.EqualFold(query.Order, "asc"),
		Page:     query.Page,
		Limit:    query.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}

	return &models.AdminRegistrationPage{
		Registrations: rows,
		Total:         total,
		Page:          query.Page,
		Limit:         query.Limit,
	}, nil
}

func (s *adminService) TeamsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.AdminRegistration, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}

	teams, err := s.adminRepo.TeamsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

func (s *adminService) GetTeamDetails(ctx context.Context, registrationID uuid.UUID) (*models.AdminTeam, error) {
	reg, err := s.store.GetRegistration(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get registration %s: %w", registrationID, err)
	}

	leader, err := s.adminRepo.LeaderUsername(ctx, reg.ID)
	if err != nil && !errors.Is(err, repositories.ErrRegistrationNotFound) {
		return nil, fmt.Errorf("failed to get leader username: %w", err)
	}
	members, err := s.adminRepo.TeamMembersWithUsernames(ctx, reg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}

	return &models.AdminTeam{
		Registration:   reg,
		LeaderUsername: leader,
		Members:        members,
	}, nil
}

func (s *adminService) DeleteRegistration(ctx context.Context, registrationID uuid.UUID) error {
	membersDeleted, err := s.store.DeleteRegistrationCascade(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to delete registration: %w", err)
	}

	s.logger.InfoContext(ctx, "Registration deleted by admin",
		slog.String("registration_id", registrationID.String()),
		slog.Int64("members_deleted", membersDeleted),
	)
	cleanupRegistrationObjects(ctx, s.objects, s.logger, registrationID)
	return nil
}

func (s *adminService) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	profiles, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

func (s *adminService) UpdateUserRole(ctx context.Context, userID uuid.UUID, input UpdateRoleInput) (*models.Profile, error) {
	input.Role = strings.ToLower(strings.TrimSpace(input.Role))
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	profile, err := s.userRepo.UpdateRole(ctx, userID, models.UserRole(input.Role))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.logger.InfoContext(ctx, "User role updated",
		slog.String("user_id", userID.String()),
		slog.String("role", input.Role),
	)
	return profile, nil
}

// DeleteUser removes the user's memberships (shrinking each team), the
// registrations they lead and the profile in one transaction.
func (s *adminService) DeleteUser(ctx context.Context, identity models.Identity, userID uuid.UUID) (*models.UserDeletionResult, error) {
	if userID == identity.ID {
		return nil, ErrCannotDeleteSelf
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get profile %s: %w", userID, err)
	}

	result := &models.UserDeletionResult{UserID: userID}
	var ledIDs []uuid.UUID

	err := s.store.WithinTx(ctx, func(tx repositories.RegistrationStore) error {
		memberships, err := tx.ListMembershipsByUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, m := range memberships {
			if err := tx.DeleteTeamMember(ctx, m.ID); err != nil {
				return err
			}
			if _, err := tx.UpdateTeamSize(ctx, m.RegistrationID, -1); err != nil {
				return err
			}
			result.MembershipsRemoved++
		}

		led, err := tx.ListRegistrationsByLeader(ctx, userID)
		if err != nil {
			return err
		}
		for _, reg := range led {
			n, err := tx.DeleteRegistrationCascade(ctx, reg.ID)
			if err != nil {
				return err
			}
			result.RegistrationsDeleted++
			result.MembersDeleted += n
			ledIDs = append(ledIDs, reg.ID)
		}

		if err := tx.DeleteProfile(ctx, userID); err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
			return fmt.Errorf("failed to delete profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	for _, id := range ledIDs {
		cleanupRegistrationObjects(ctx, s.objects, s.logger, id)
	}

	s.logger.InfoContext(ctx, "User deleted",
		slog.String("user_id", userID.String()),
		slog.String("deleted_by", identity.ID.String()),
		slog.Int("registrations_deleted", result.RegistrationsDeleted),
		slog.Int("memberships_removed", result.MembershipsRemoved),
	)
	return result, nil
}
