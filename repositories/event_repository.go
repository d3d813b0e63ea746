package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/sports-registration/models"
	"github.com/google/uuid"
)

var ErrEventSportInvalid = errors.New("event sport conflict or invalid")

type EventFilter struct {
	SportID          *uuid.UUID
	Date             *string
	Location         *string
	RegistrationType *models.RegistrationType
	Status           *models.EventStatus
}

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, filter EventFilter, newestFirst bool) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountRegistrations(ctx context.Context, id uuid.UUID) (int, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

var eventConstraintErrors = map[string]error{
	"events_sport_id_fkey": ErrEventSportInvalid,
}

const eventWithSportSelect = `
	SELECT e.id, e.sport_id, e.title, e.description, e.event_date, e.event_time, e.location,
	       e.registration_type, e.team_size, e.status, e.created_by, e.created_at, e.updated_at,
	       s.id, s.name, s.slug, s.description, s.rules, s.icon_url, s.is_pre_event, s.gender_category, s.created_at
	FROM events e
	JOIN sports s ON s.id = e.sport_id`

func scanEvent(s rowScanner, e *models.Event, extra ...interface{}) error {
	dest := []interface{}{
		&e.ID,
		&e.SportID,
		&e.Title,
		&e.Description,
		&e.EventDate,
		&e.EventTime,
		&e.Location,
		&e.RegistrationType,
		&e.TeamSize,
		&e.Status,
		&e.CreatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	}
	return s.Scan(append(dest, extra...)...)
}

func scanEventWithSport(s rowScanner) (*models.Event, error) {
	e := &models.Event{}
	sport := &models.Sport{}
	err := scanEvent(s, e,
		&sport.ID, &sport.Name, &sport.Slug, &sport.Description, &sport.Rules,
		&sport.IconURL, &sport.IsPreEvent, &sport.GenderCategory, &sport.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Sport = sport
	return e, nil
}

func (r *postgresEventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events
			(sport_id, title, description, event_date, event_time, location,
			 registration_type, team_size, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		event.SportID,
		event.Title,
		event.Description,
		event.EventDate,
		event.EventTime,
		event.Location,
		event.RegistrationType,
		event.TeamSize,
		event.Status,
		event.CreatedBy,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		if mapped, ok := constraintError(err, eventConstraintErrors); ok {
			return mapped
		}
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, err := scanEventWithSport(r.db.QueryRowContext(ctx, eventWithSportSelect+` WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (r *postgresEventRepository) List(ctx context.Context, filter EventFilter, newestFirst bool) ([]models.Event, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(eventWithSportSelect)

	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)
	addCondition := func(format string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}

	if filter.SportID != nil {
		addCondition("e.sport_id = $%d", *filter.SportID)
	}
	if filter.Date != nil {
		addCondition("e.event_date = $%d::date", *filter.Date)
	}
	if filter.Location != nil {
		addCondition("e.location ILIKE '%%' || $%d || '%%'", *filter.Location)
	}
	if filter.RegistrationType != nil {
		addCondition("e.registration_type = $%d", *filter.RegistrationType)
	}
	if filter.Status != nil {
		addCondition("e.status = $%d", *filter.Status)
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	if newestFirst {
		queryBuilder.WriteString(" ORDER BY e.event_date DESC NULLS LAST, e.created_at DESC")
	} else {
		queryBuilder.WriteString(" ORDER BY e.event_date ASC NULLS LAST, e.created_at ASC")
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		e, err := scanEventWithSport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, *e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}

func (r *postgresEventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events SET
			sport_id = $1, title = $2, description = $3, event_date = $4, event_time = $5,
			location = $6, registration_type = $7, team_size = $8, status = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		event.SportID,
		event.Title,
		event.Description,
		event.EventDate,
		event.EventTime,
		event.Location,
		event.RegistrationType,
		event.TeamSize,
		event.Status,
		event.ID,
	).Scan(&event.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		if mapped, ok := constraintError(err, eventConstraintErrors); ok {
			return mapped
		}
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	_, err = checkAffectedRows(result, ErrEventNotFound)
	return err
}

func (r *postgresEventRepository) CountRegistrations(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1`, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}
