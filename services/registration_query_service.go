package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const dashboardLoadConcurrency = 4

// EventLookup loads an event together with its sport.
type EventLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

type TeamDetails struct {
	Registration *models.Registration `json:"registration"`
	Members      []models.TeamMember  `json:"members"`
	Event        *models.Event        `json:"event"`
	CurrentSize  int                  `json:"current_size"`
	MaxSize      *int                 `json:"max_size"`
	Access       *models.AccessResult `json:"access"`
}

type InvitePreview struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	TeamName       string    `json:"team_name"`
	EventID        uuid.UUID `json:"event_id"`
	EventTitle     string    `json:"event_title"`
	CurrentSize    int       `json:"current_size"`
	MaxSize        *int      `json:"max_size"`
	IsFull         bool      `json:"is_full"`
}

type TeamInvite struct {
	Code    string `json:"invite_code"`
	JoinURL string `json:"join_url"`
}

type TeamCapacity struct {
	CanAdd      bool   `json:"can_add"`
	Reason      string `json:"reason,omitempty"`
	CurrentSize int    `json:"current_size"`
	MaxSize     *int   `json:"max_size"`
}

// RegistrationQueryService covers the read paths around registrations.
type RegistrationQueryService interface {
	CheckUserRegistration(ctx context.Context, userID, eventID uuid.UUID) (bool, error)
	GetUserRegistrations(ctx context.Context, identity models.Identity) ([]*models.Registration, error)
	GetTeamDetails(ctx context.Context, registrationID uuid.UUID, identity models.Identity) (*TeamDetails, error)
	GetInvitePreview(ctx context.Context, code string) (*InvitePreview, error)
	GetTeamInviteCode(ctx context.Context, registrationID uuid.UUID, identity models.Identity) (*TeamInvite, error)
	CanAddTeamMember(ctx context.Context, registrationID uuid.UUID, identity models.Identity) (*TeamCapacity, error)
}

type registrationQueryService struct {
	store     repositories.RegistrationStore
	events    EventLookup
	publicURL string
}

func NewRegistrationQueryService(store repositories.RegistrationStore, events EventLookup, publicURL string) RegistrationQueryService {
	return &registrationQueryService{
		store:     store,
		events:    events,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// JoinURL is the public link encoded into invite QR codes.
func JoinURL(publicURL, code string) string {
	return strings.TrimRight(publicURL, "/") + "/join/" + code
}

func (s *registrationQueryService) CheckUserRegistration(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	registered, err := s.store.HasParticipation(ctx, userID, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return registered, nil
}

func (s *registrationQueryService) loadEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return event, nil
}

func (s *registrationQueryService) GetUserRegistrations(ctx context.Context, identity models.Identity) ([]*models.Registration, error) {
	registrations, err := s.store.ListUserRegistrations(ctx, identity.ID, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to list user registrations: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardLoadConcurrency)

	for _, reg := range registrations {
		reg := reg
		g.Go(func() error {
			event, err := s.loadEvent(gCtx, reg.EventID)
			if err != nil {
				return err
			}
			reg.Event = event
			if reg.UserRole != models.RoleLeader {
				reg.TeamInviteCode = nil
			}
			return nil
		})
		if reg.IsTeam() {
			g.Go(func() error {
				members, err := s.store.ListTeamMembers(gCtx, reg.ID)
				if err != nil {
					return fmt.Errorf("failed to list members of %s: %w", reg.ID, err)
				}
				reg.TeamMembers = members
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return registrations, nil
}

func (s *registrationQueryService) GetTeamDetails(ctx context.Context, registrationID uuid.UUID, identity models.Identity) (*TeamDetails, error) {
	access, reg, err := resolveAccess(ctx, s.store, registrationID, identity)
	if err != nil {
		return nil, err
	}
	if !access.Granted {
		return nil, ErrAccessDenied
	}
	reg.UserRole = access.Role

	details := &TeamDetails{Registration: reg, Access: access, CurrentSize: reg.CurrentTeamSize}

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Состав команды
	g.Go(func() error {
		members, err := s.store.ListTeamMembers(gCtx, reg.ID)
		if err != nil {
			return fmt.Errorf("failed to list team members: %w", err)
		}
		details.Members = members
		return nil
	})

	// 2. Мероприятие и лимит
	g.Go(func() error {
		event, err := s.loadEvent(gCtx, reg.EventID)
		if err != nil {
			return err
		}
		details.Event = event
		details.MaxSize = event.TeamSize
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !access.IsLeader {
		reg.TeamInviteCode = nil
	}
	return details, nil
}

func (s *registrationQueryService) GetInvitePreview(ctx context.Context, code string) (*InvitePreview, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrInvalidInviteCode
	}

	reg, err := s.store.ResolveInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to resolve invite code: %w", err)
	}

	event, err := s.loadEvent(ctx, reg.EventID)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, err
	}

	return &InvitePreview{
		RegistrationID: reg.ID,
		TeamName:       reg.TeamName,
		EventID:        event.ID,
		EventTitle:     event.Title,
		CurrentSize:    reg.CurrentTeamSize,
		MaxSize:        event.TeamSize,
		IsFull:         !event.HasRoomFor(reg.CurrentTeamSize, 1),
	}, nil
}

func (s *registrationQueryService) GetTeamInviteCode(ctx context.Context, registrationID uuid.UUID, identity models.Identity) (*TeamInvite, error) {
	reg, err := s.store.GetRegistration(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get registration %s: %w", registrationID, err)
	}
	if reg.UserID != identity.ID {
		return nil, ErrForbidden
	}
	if !reg.IsTeam() || reg.TeamInviteCode == nil {
		return nil, ErrInvalidInviteCode
	}

	return &TeamInvite{
		Code:    *reg.TeamInviteCode,
		JoinURL: JoinURL(s.publicURL, *reg.TeamInviteCode),
	}, nil
}

func (s *registrationQueryService) CanAddTeamMember(ctx context.Context, registrationID uuid.UUID, identity models.Identity) (*TeamCapacity, error) {
	access, reg, err := resolveAccess(ctx, s.store, registrationID, identity)
	if err != nil {
		return nil, err
	}
	if !access.Granted {
		return nil, ErrAccessDenied
	}

	event, err := s.store.GetEvent(ctx, reg.EventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %s: %w", reg.EventID, err)
	}

	capacity := &TeamCapacity{CurrentSize: reg.CurrentTeamSize, MaxSize: event.TeamSize}
	switch {
	case !reg.IsTeam():
		capacity.Reason = "Not a team registration"
	case !event.Status.AcceptsRegistrations():
		capacity.Reason = "Event is not accepting registrations"
	case !event.HasRoomFor(reg.CurrentTeamSize, 1):
		capacity.Reason = "Team is full"
	default:
		capacity.CanAdd = true
	}
	return capacity, nil
}
