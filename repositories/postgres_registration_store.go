package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/sports-registration/models"
	"github.com/google/uuid"
)

const registrationColumns = `
	r.id, r.event_id, r.user_id, r.registration_type, r.team_name, r.leader_mobile_number,
	r.status, r.qr_code_data, r.current_team_size, r.team_invite_code, r.created_at`

const teamMemberColumns = `tm.id, tm.registration_id, tm.user_id, tm.member_name, tm.member_email, tm.created_at`

var registrationConstraintErrors = map[string]error{
	"registrations_user_id_event_id_key":   ErrRegistrationConflict,
	"registrations_event_id_team_name_key": ErrTeamNameConflict,
	"registrations_team_invite_code_key":   ErrInviteCodeConflict,
	"registrations_event_id_fkey":          ErrRegistrationInvalid,
	"registrations_user_id_fkey":           ErrUserNotFound,
}

var teamMemberConstraintErrors = map[string]error{
	"team_members_registration_id_user_id_key": ErrTeamMemberConflict,
	"team_members_registration_id_fkey":        ErrRegistrationNotFound,
	"team_members_user_id_fkey":                ErrUserNotFound,
}

type postgresRegistrationStore struct {
	db   *sql.DB
	exec SQLExecutor
	inTx bool
}

func NewPostgresRegistrationStore(db *sql.DB) RegistrationStore {
	return &postgresRegistrationStore{db: db, exec: db}
}

func (r *postgresRegistrationStore) WithinTx(ctx context.Context, fn func(store RegistrationStore) error) (err error) {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	err = fn(&postgresRegistrationStore{db: r.db, exec: tx, inTx: true})
	return err
}

func (r *postgresRegistrationStore) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	query := `
		SELECT id, sport_id, title, description, event_date, event_time, location,
		       registration_type, team_size, status, created_by, created_at, updated_at
		FROM events
		WHERE id = $1`

	e := &models.Event{}
	err := scanEvent(r.exec.QueryRowContext(ctx, query, eventID), e)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func scanRegistration(s rowScanner, reg *models.Registration, extra ...interface{}) error {
	dest := []interface{}{
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&reg.RegistrationType,
		&reg.TeamName,
		&reg.LeaderMobileNumber,
		&reg.Status,
		&reg.QRCodeData,
		&reg.CurrentTeamSize,
		&reg.TeamInviteCode,
		&reg.CreatedAt,
	}
	return s.Scan(append(dest, extra...)...)
}

func (r *postgresRegistrationStore) findOneRegistration(ctx context.Context, where string, args ...interface{}) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations r WHERE ` + where

	reg := &models.Registration{}
	if err := scanRegistration(r.exec.QueryRowContext(ctx, query, args...), reg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	return reg, nil
}

func (r *postgresRegistrationStore) queryRegistrations(ctx context.Context, query string, withRole bool, args ...interface{}) ([]*models.Registration, error) {
	rows, err := r.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		reg := &models.Registration{}
		var scanErr error
		if withRole {
			scanErr = scanRegistration(rows, reg, &reg.UserRole)
		} else {
			scanErr = scanRegistration(rows, reg)
		}
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", scanErr)
		}
		registrations = append(registrations, reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return registrations, nil
}

func (r *postgresRegistrationStore) GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	return r.findOneRegistration(ctx, `r.id = $1`, id)
}

func (r *postgresRegistrationStore) FindRegistration(ctx context.Context, userID, eventID uuid.UUID) (*models.Registration, error) {
	return r.findOneRegistration(ctx, `r.user_id = $1 AND r.event_id = $2`, userID, eventID)
}

func (r *postgresRegistrationStore) FindRegistrationByTeamName(ctx context.Context, eventID uuid.UUID, teamName string) (*models.Registration, error) {
	return r.findOneRegistration(ctx, `r.event_id = $1 AND r.team_name = $2`, eventID, teamName)
}

func (r *postgresRegistrationStore) ResolveInviteCode(ctx context.Context, code string) (*models.Registration, error) {
	return r.findOneRegistration(ctx, `r.team_invite_code = $1 AND r.registration_type = 'team'`, code)
}

func (r *postgresRegistrationStore) HasParticipation(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM registrations WHERE user_id = $1 AND event_id = $2
		) OR EXISTS (
			SELECT 1
			FROM team_members tm
			JOIN registrations r ON r.id = tm.registration_id
			WHERE tm.user_id = $1 AND r.event_id = $2
		)`

	var exists bool
	if err := r.exec.QueryRowContext(ctx, query, userID, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check participation: %w", err)
	}
	return exists, nil
}

func (r *postgresRegistrationStore) ListUserRegistrations(ctx context.Context, userID uuid.UUID, email string) ([]*models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `,
		       CASE WHEN r.user_id = $1 THEN 'Leader' ELSE 'Member' END AS user_role
		FROM registrations r
		WHERE r.user_id = $1
		   OR EXISTS (
				SELECT 1 FROM team_members tm
				WHERE tm.registration_id = r.id
				  AND (tm.user_id = $1
				       OR ($2 <> '' AND tm.user_id IS NULL AND lower(btrim(tm.member_email)) = $2))
		   )
		ORDER BY r.created_at DESC`

	return r.queryRegistrations(ctx, query, true, userID, models.NormalizeEmail(email))
}

func (r *postgresRegistrationStore) ListRegistrationsByLeader(ctx context.Context, userID uuid.UUID) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations r WHERE r.user_id = $1 ORDER BY r.created_at`
	return r.queryRegistrations(ctx, query, false, userID)
}

func (r *postgresRegistrationStore) InsertRegistration(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations
			(event_id, user_id, registration_type, team_name, leader_mobile_number,
			 status, qr_code_data, current_team_size, team_invite_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.exec.QueryRowContext(ctx, query,
		reg.EventID,
		reg.UserID,
		reg.RegistrationType,
		reg.TeamName,
		reg.LeaderMobileNumber,
		reg.Status,
		reg.QRCodeData,
		reg.CurrentTeamSize,
		reg.TeamInviteCode,
	).Scan(&reg.ID, &reg.CreatedAt)

	if err != nil {
		if mapped, ok := constraintError(err, registrationConstraintErrors); ok {
			return mapped
		}
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationStore) UpdateTeamSize(ctx context.Context, registrationID uuid.UUID, delta int) (int, error) {
	// Условие по лимиту проверяется в том же UPDATE, без отдельного чтения.
	query := `
		UPDATE registrations r
		SET current_team_size = r.current_team_size + $2::int
		FROM events e
		WHERE r.id = $1
		  AND e.id = r.event_id
		  AND r.current_team_size + $2::int >= 1
		  AND ($2::int <= 0 OR e.team_size IS NULL OR r.current_team_size + $2::int <= e.team_size)
		RETURNING r.current_team_size`

	var newSize int
	err := r.exec.QueryRowContext(ctx, query, registrationID, delta).Scan(&newSize)
	if err == nil {
		return newSize, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to update team size: %w", err)
	}

	var exists bool
	if err := r.exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE id = $1)`, registrationID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check registration after size update: %w", err)
	}
	switch {
	case !exists:
		return 0, ErrRegistrationNotFound
	case delta > 0:
		return 0, ErrTeamCapacityReached
	default:
		return 0, ErrTeamSizeUnderflow
	}
}

func (r *postgresRegistrationStore) DeleteRegistrationCascade(ctx context.Context, registrationID uuid.UUID) (int64, error) {
	var membersDeleted int64
	err := r.WithinTx(ctx, func(store RegistrationStore) error {
		tx := store.(*postgresRegistrationStore).exec

		res, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE registration_id = $1`, registrationID)
		if err != nil {
			return fmt.Errorf("failed to delete team members: %w", err)
		}
		if membersDeleted, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to count deleted team members: %w", err)
		}

		if _, err = tx.ExecContext(ctx, `DELETE FROM documents WHERE registration_id = $1`, registrationID); err != nil {
			return fmt.Errorf("failed to delete documents: %w", err)
		}

		res, err = tx.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, registrationID)
		if err != nil {
			return fmt.Errorf("failed to delete registration: %w", err)
		}
		_, err = checkAffectedRows(res, ErrRegistrationNotFound)
		return err
	})
	if err != nil {
		return 0, err
	}
	return membersDeleted, nil
}

func scanTeamMember(s rowScanner, m *models.TeamMember) error {
	return s.Scan(&m.ID, &m.RegistrationID, &m.UserID, &m.MemberName, &m.MemberEmail, &m.CreatedAt)
}

func (r *postgresRegistrationStore) findOneTeamMember(ctx context.Context, where string, args ...interface{}) (*models.TeamMember, error) {
	query := `SELECT ` + teamMemberColumns + ` FROM team_members tm WHERE ` + where + ` ORDER BY tm.created_at LIMIT 1`

	m := &models.TeamMember{}
	if err := scanTeamMember(r.exec.QueryRowContext(ctx, query, args...), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamMemberNotFound
		}
		return nil, fmt.Errorf("failed to find team member: %w", err)
	}
	return m, nil
}

func (r *postgresRegistrationStore) listTeamMembers(ctx context.Context, where string, args ...interface{}) ([]models.TeamMember, error) {
	query := `SELECT ` + teamMemberColumns + ` FROM team_members tm WHERE ` + where + ` ORDER BY tm.created_at ASC`

	rows, err := r.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	members := make([]models.TeamMember, 0)
	for rows.Next() {
		var m models.TeamMember
		if err := scanTeamMember(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan team member row: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team member rows: %w", err)
	}
	return members, nil
}

func (r *postgresRegistrationStore) InsertTeamMember(ctx context.Context, member *models.TeamMember) error {
	query := `
		INSERT INTO team_members (registration_id, user_id, member_name, member_email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.exec.QueryRowContext(ctx, query,
		member.RegistrationID,
		member.UserID,
		member.MemberName,
		member.MemberEmail,
	).Scan(&member.ID, &member.CreatedAt)

	if err != nil {
		if mapped, ok := constraintError(err, teamMemberConstraintErrors); ok {
			return mapped
		}
		return fmt.Errorf("failed to insert team member: %w", err)
	}
	return nil
}

func (r *postgresRegistrationStore) GetTeamMember(ctx context.Context, memberID uuid.UUID) (*models.TeamMember, error) {
	return r.findOneTeamMember(ctx, `tm.id = $1`, memberID)
}

func (r *postgresRegistrationStore) FindTeamMemberByUser(ctx context.Context, registrationID, userID uuid.UUID) (*models.TeamMember, error) {
	return r.findOneTeamMember(ctx, `tm.registration_id = $1 AND tm.user_id = $2`, registrationID, userID)
}

func (r *postgresRegistrationStore) FindTeamMemberByEmail(ctx context.Context, registrationID uuid.UUID, email string) (*models.TeamMember, error) {
	normalized := models.NormalizeEmail(email)
	if normalized == "" {
		return nil, ErrTeamMemberNotFound
	}
	return r.findOneTeamMember(ctx,
		`tm.registration_id = $1 AND tm.user_id IS NULL AND lower(btrim(tm.member_email)) = $2`,
		registrationID, normalized)
}

func (r *postgresRegistrationStore) ListTeamMembers(ctx context.Context, registrationID uuid.UUID) ([]models.TeamMember, error) {
	return r.listTeamMembers(ctx, `tm.registration_id = $1`, registrationID)
}

func (r *postgresRegistrationStore) ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]models.TeamMember, error) {
	return r.listTeamMembers(ctx, `tm.user_id = $1`, userID)
}

func (r *postgresRegistrationStore) DeleteTeamMember(ctx context.Context, memberID uuid.UUID) error {
	result, err := r.exec.ExecContext(ctx, `DELETE FROM team_members WHERE id = $1`, memberID)
	if err != nil {
		return fmt.Errorf("failed to delete team member: %w", err)
	}
	_, err = checkAffectedRows(result, ErrTeamMemberNotFound)
	return err
}

func (r *postgresRegistrationStore) RecordDuplicateAttempt(ctx context.Context, attempt *models.DuplicateAttempt) error {
	query := `
		INSERT INTO duplicate_registration_attempts (user_id, event_id, ip_address, user_agent)
		VALUES ($1, $2, $3, $4)
		RETURNING id, attempted_at`

	err := r.exec.QueryRowContext(ctx, query,
		attempt.UserID,
		attempt.EventID,
		attempt.IPAddress,
		attempt.UserAgent,
	).Scan(&attempt.ID, &attempt.AttemptedAt)
	if err != nil {
		return fmt.Errorf("failed to record duplicate attempt: %w", err)
	}
	return nil
}

func (r *postgresRegistrationStore) LockParticipation(ctx context.Context, userID, eventID uuid.UUID) error {
	if !r.inTx {
		return ErrLockOutsideTx
	}
	// Блокировка снимается при COMMIT/ROLLBACK.
	query := `SELECT pg_advisory_xact_lock(hashtextextended($1::text || ':' || $2::text, 0))`
	if _, err := r.exec.ExecContext(ctx, query, userID, eventID); err != nil {
		return fmt.Errorf("failed to lock participation: %w", err)
	}
	return nil
}

func (r *postgresRegistrationStore) DeleteProfile(ctx context.Context, userID uuid.UUID) error {
	result, err := r.exec.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	_, err = checkAffectedRows(result, ErrUserNotFound)
	return err
}
