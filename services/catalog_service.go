package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/repositories"
	"github.com/google/uuid"
)

type EventListFilter struct {
	SportID          *uuid.UUID
	Date             string
	Location         string
	RegistrationType string
}

// CatalogService serves the public sports and events listings.
type CatalogService interface {
	ListSports(ctx context.Context) ([]models.Sport, error)
	GetSportBySlug(ctx context.Context, slug string) (*models.Sport, error)
	ListEvents(ctx context.Context, filter EventListFilter) ([]models.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

type catalogService struct {
	sportRepo repositories.SportRepository
	eventRepo repositories.EventRepository
}

func NewCatalogService(sportRepo repositories.SportRepository, eventRepo repositories.EventRepository) CatalogService {
	return &catalogService{
		sportRepo: sportRepo,
		eventRepo: eventRepo,
	}
}

func (s *catalogService) ListSports(ctx context.Context) ([]models.Sport, error) {
	sports, err := s.sportRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sports: %w", err)
	}
	return sports, nil
}

func (s *catalogService) GetSportBySlug(ctx context.Context, slug string) (*models.Sport, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, ErrSportNotFound
	}
	sport, err := s.sportRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrSportNotFound) {
			return nil, ErrSportNotFound
		}
		return nil, fmt.Errorf("failed to get sport %q: %w", slug, err)
	}
	return sport, nil
}

// ListEvents returns upcoming events only.
func (s *catalogService) ListEvents(ctx context.Context, filter EventListFilter) ([]models.Event, error) {
	upcoming := models.EventUpcoming
	repoFilter := repositories.EventFilter{
		SportID: filter.SportID,
		Status:  &upcoming,
	}

	if date := strings.TrimSpace(filter.Date); date != "" {
		if err := validate.Var(date, "datetime=2006-01-02"); err != nil {
			return nil, fieldError("date", "date must be in YYYY-MM-DD format")
		}
		repoFilter.Date = &date
	}
	if location := strings.TrimSpace(filter.Location); location != "" {
		repoFilter.Location = &location
	}
	if rt := strings.TrimSpace(filter.RegistrationType); rt != "" {
		if err := validate.Var(rt, "oneof=individual team"); err != nil {
			return nil, fieldError("registration_type", "registration_type must be one of: individual team")
		}
		regType := models.RegistrationType(rt)
		repoFilter.RegistrationType = &regType
	}

	events, err := s.eventRepo.List(ctx, repoFilter, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *catalogService) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return event, nil
}
