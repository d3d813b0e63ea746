package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/sports-registration/models"
	"github.com/google/uuid"
)

var ErrSportNotFound = errors.New("sport not found")

type SportRepository interface {
	GetAll(ctx context.Context) ([]models.Sport, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Sport, error)
	GetBySlug(ctx context.Context, slug string) (*models.Sport, error)
}

type postgresSportRepository struct {
	db *sql.DB
}

func NewPostgresSportRepository(db *sql.DB) SportRepository {
	return &postgresSportRepository{db: db}
}

const sportColumns = `id, name, slug, description, rules, icon_url, is_pre_event, gender_category, created_at`

func scanSport(s rowScanner, sport *models.Sport) error {
	return s.Scan(
		&sport.ID,
		&sport.Name,
		&sport.Slug,
		&sport.Description,
		&sport.Rules,
		&sport.IconURL,
		&sport.IsPreEvent,
		&sport.GenderCategory,
		&sport.CreatedAt,
	)
}

func (r *postgresSportRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.Sport, error) {
	var sport models.Sport
	err := scanSport(r.db.QueryRowContext(ctx, `SELECT `+sportColumns+` FROM sports WHERE `+where, arg), &sport)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSportNotFound
		}
		return nil, fmt.Errorf("failed to get sport: %w", err)
	}
	return &sport, nil
}

func (r *postgresSportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Sport, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *postgresSportRepository) GetBySlug(ctx context.Context, slug string) (*models.Sport, error) {
	return r.findOne(ctx, `slug = $1`, slug)
}

func (r *postgresSportRepository) GetAll(ctx context.Context) ([]models.Sport, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sportColumns+` FROM sports ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sports: %w", err)
	}
	defer rows.Close()

	sports := make([]models.Sport, 0)
	for rows.Next() {
		var sport models.Sport
		if scanErr := scanSport(rows, &sport); scanErr != nil {
			return nil, scanErr
		}
		sports = append(sports, sport)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return sports, nil
}
