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

type AdminRegistrationFilter struct {
	SportID *uuid.UUID
	// Search matches leader username or email, case-insensitively.
	Search   string
	SortBy   string
	SortDesc bool
	Page     int
	Limit    int
}

// AdminRepository serves the read-heavy admin views that join across
// registrations, profiles, events and sports.
type AdminRepository interface {
	ListRegistrations(ctx context.Context, filter AdminRegistrationFilter) ([]models.AdminRegistration, int, error)
	TeamsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.AdminRegistration, error)
	LeaderUsername(ctx context.Context, registrationID uuid.UUID) (*string, error)
	TeamMembersWithUsernames(ctx context.Context, registrationID uuid.UUID) ([]models.AdminTeamMember, error)
}

type postgresAdminRepository struct {
	db *sql.DB
}

func NewPostgresAdminRepository(db *sql.DB) AdminRepository {
	return &postgresAdminRepository{db: db}
}

const adminRegistrationFrom = `
	FROM registrations r
	JOIN events e ON e.id = r.event_id
	JOIN sports s ON s.id = e.sport_id
	LEFT JOIN profiles p ON p.id = r.user_id`

var adminSortColumns = map[string]string{
	"date":  "r.created_at",
	"name":  "p.username",
	"sport": "s.name",
}

func (r *postgresAdminRepository) scanAdminRows(rows *sql.Rows) ([]models.AdminRegistration, error) {
	result := make([]models.AdminRegistration, 0)
	for rows.Next() {
		var row models.AdminRegistration
		if err := scanRegistration(rows, &row.Registration, &row.Username, &row.Email, &row.EventTitle, &row.SportName); err != nil {
			return nil, fmt.Errorf("failed to scan admin registration row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin registration rows: %w", err)
	}
	return result, nil
}

func (r *postgresAdminRepository) ListRegistrations(ctx context.Context, filter AdminRegistrationFilter) ([]models.AdminRegistration, int, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	if filter.SportID != nil {
		conditions = append(conditions, fmt.Sprintf("s.id = $%d", argID))
		args = append(args, *filter.SportID)
		argID++
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("(p.username ILIKE $%d OR p.email ILIKE $%d)", argID, argID))
		args = append(args, "%"+search+"%")
		argID++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+adminRegistrationFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count registrations: %w", err)
	}

	sortColumn, ok := adminSortColumns[filter.SortBy]
	if !ok {
		sortColumn = adminSortColumns["date"]
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	query := `SELECT ` + registrationColumns + `, p.username, p.email, e.title, s.name` +
		adminRegistrationFrom + where +
		fmt.Sprintf(" ORDER BY %s %s NULLS LAST, r.id LIMIT $%d OFFSET $%d", sortColumn, direction, argID, argID+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	result, err := r.scanAdminRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *postgresAdminRepository) TeamsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.AdminRegistration, error) {
	query := `SELECT ` + registrationColumns + `, p.username, p.email, e.title, s.name` +
		adminRegistrationFrom + `
		WHERE r.event_id = $1 AND r.registration_type = 'team'
		ORDER BY r.created_at`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams by event: %w", err)
	}
	defer rows.Close()

	return r.scanAdminRows(rows)
}

func (r *postgresAdminRepository) LeaderUsername(ctx context.Context, registrationID uuid.UUID) (*string, error) {
	query := `
		SELECT p.username
		FROM registrations r
		LEFT JOIN profiles p ON p.id = r.user_id
		WHERE r.id = $1`

	var username *string
	if err := r.db.QueryRowContext(ctx, query, registrationID).Scan(&username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get leader username: %w", err)
	}
	return username, nil
}

func (r *postgresAdminRepository) TeamMembersWithUsernames(ctx context.Context, registrationID uuid.UUID) ([]models.AdminTeamMember, error) {
	query := `
		SELECT tm.id, tm.user_id, tm.member_name, p.username
		FROM team_members tm
		LEFT JOIN profiles p ON p.id = tm.user_id
		WHERE tm.registration_id = $1
		ORDER BY tm.created_at`

	rows, err := r.db.QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	members := make([]models.AdminTeamMember, 0)
	for rows.Next() {
		var m models.AdminTeamMember
		if err := rows.Scan(&m.ID, &m.UserID, &m.MemberName, &m.Username); err != nil {
			return nil, fmt.Errorf("failed to scan team member row: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}
