package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/repositories"
	"github.com/google/uuid"
)

type AccessService interface {
	CheckAccess(ctx context.Context, registrationID uuid.UUID, identity models.Identity) (*models.AccessResult, error)
}

type accessService struct {
	store repositories.RegistrationStore
}

func NewAccessService(store repositories.RegistrationStore) AccessService {
	return &accessService{store: store}
}

// CheckAccess возвращает роль пользователя в регистрации.
// Отказ сообщается ошибкой ErrAccessDenied, отсутствующая регистрация - ErrTeamNotFound.
func (s *accessService) CheckAccess(ctx context.Context, registrationID uuid.UUID, identity models.Identity) (*models.AccessResult, error) {
	access, _, err := resolveAccess(ctx, s.store, registrationID, identity)
	if err != nil {
		return nil, err
	}
	if !access.Granted {
		return nil, ErrAccessDenied
	}
	return access, nil
}

// resolveAccess derives the caller's role. Membership is matched by linked
// user id first; an unlinked member row whose email equals the caller's
// normalized email is the fallback for members added before they signed in.
func resolveAccess(ctx context.Context, store repositories.RegistrationStore, registrationID uuid.UUID, identity models.Identity) (*models.AccessResult, *models.Registration, error) {
	reg, err := store.GetRegistration(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, nil, ErrTeamNotFound
		}
		return nil, nil, fmt.Errorf("failed to get registration %s: %w", registrationID, err)
	}

	result := &models.AccessResult{RegistrationID: reg.ID, Role: models.RoleNone}

	if reg.UserID == identity.ID {
		result.Role = models.RoleLeader
		result.Granted = true
		result.IsLeader = true
		return result, reg, nil
	}

	member, err := store.FindTeamMemberByUser(ctx, reg.ID, identity.ID)
	if err != nil && !errors.Is(err, repositories.ErrTeamMemberNotFound) {
		return nil, nil, fmt.Errorf("failed to find member by user: %w", err)
	}

	if member == nil && models.NormalizeEmail(identity.Email) != "" {
		member, err = store.FindTeamMemberByEmail(ctx, reg.ID, identity.Email)
		if err != nil && !errors.Is(err, repositories.ErrTeamMemberNotFound) {
			return nil, nil, fmt.Errorf("failed to find member by email: %w", err)
		}
		result.MatchedByEmail = member != nil
	}

	if member != nil {
		memberID := member.ID
		result.Role = models.RoleMember
		result.Granted = true
		result.IsMember = true
		result.MemberID = &memberID
	}
	return result, reg, nil
}
