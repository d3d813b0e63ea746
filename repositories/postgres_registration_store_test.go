package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dosada05/sports-registration/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (RegistrationStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRegistrationStore(db), mock
}

const (
	updateSizeQuery = `UPDATE registrations r SET current_team_size = r.current_team_size \+ \$2::int ` +
		`FROM events e WHERE r.id = \$1 AND e.id = r.event_id AND r.current_team_size \+ \$2::int >= 1 ` +
		`AND \(\$2::int <= 0 OR e.team_size IS NULL OR r.current_team_size \+ \$2::int <= e.team_size\)`
	registrationExistsQuery = `SELECT EXISTS \(SELECT 1 FROM registrations WHERE id = \$1\)`
	advisoryLockQuery       = `SELECT pg_advisory_xact_lock\(hashtextextended\(\$1::text \|\| ':' \|\| \$2::text, 0\)\)`
)

func TestPostgresStore_UpdateTeamSize(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name     string
		delta    int
		updated  bool
		exists   bool
		wantSize int
		wantErr  error
	}{
		{name: "within cap", delta: 1, updated: true, wantSize: 3},
		{name: "cap reached", delta: 1, exists: true, wantErr: ErrTeamCapacityReached},
		{name: "below leader", delta: -1, exists: true, wantErr: ErrTeamSizeUnderflow},
		{name: "missing registration", delta: 1, exists: false, wantErr: ErrRegistrationNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			rows := sqlmock.NewRows([]string{"current_team_size"})
			if tt.updated {
				rows.AddRow(tt.wantSize)
			}
			mock.ExpectQuery(updateSizeQuery).WithArgs(id, tt.delta).WillReturnRows(rows)
			if !tt.updated {
				mock.ExpectQuery(registrationExistsQuery).WithArgs(id).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))
			}

			size, err := store.UpdateTeamSize(context.Background(), id, tt.delta)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantSize, size)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_InsertRegistrationConstraints(t *testing.T) {
	tests := []struct {
		constraint string
		code       pq.ErrorCode
		want       error
	}{
		{"registrations_user_id_event_id_key", "23505", ErrRegistrationConflict},
		{"registrations_event_id_team_name_key", "23505", ErrTeamNameConflict},
		{"registrations_team_invite_code_key", "23505", ErrInviteCodeConflict},
		{"registrations_event_id_fkey", "23503", ErrRegistrationInvalid},
		{"registrations_user_id_fkey", "23503", ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectQuery(`INSERT INTO registrations`).
				WillReturnError(&pq.Error{Code: tt.code, Constraint: tt.constraint})

			reg := &models.Registration{EventID: uuid.New(), UserID: uuid.New(), TeamName: "Falcons"}
			err := store.InsertRegistration(context.Background(), reg)
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("unknown constraint stays a driver error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`INSERT INTO registrations`).
			WillReturnError(&pq.Error{Code: "23514", Constraint: "registrations_current_team_size_check"})

		err := store.InsertRegistration(context.Background(), &models.Registration{})
		var pqErr *pq.Error
		assert.True(t, errors.As(err, &pqErr))
	})
}

func TestPostgresStore_InsertTeamMemberConstraints(t *testing.T) {
	tests := []struct {
		constraint string
		code       pq.ErrorCode
		want       error
	}{
		{"team_members_registration_id_user_id_key", "23505", ErrTeamMemberConflict},
		{"team_members_registration_id_fkey", "23503", ErrRegistrationNotFound},
		{"team_members_user_id_fkey", "23503", ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectQuery(`INSERT INTO team_members`).
				WillReturnError(&pq.Error{Code: tt.code, Constraint: tt.constraint})

			userID := uuid.New()
			err := store.InsertTeamMember(context.Background(), &models.TeamMember{
				RegistrationID: uuid.New(),
				UserID:         &userID,
				MemberName:     "Mia",
			})
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_LockParticipation(t *testing.T) {
	ctx := context.Background()
	userID, eventID := uuid.New(), uuid.New()

	t.Run("requires a transaction", func(t *testing.T) {
		store, mock := newMockStore(t)
		assert.ErrorIs(t, store.LockParticipation(ctx, userID, eventID), ErrLockOutsideTx)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("locks before the participation check", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(advisoryLockQuery).WithArgs(userID, eventID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT EXISTS \( SELECT 1 FROM registrations WHERE user_id = \$1 AND event_id = \$2`).
			WithArgs(userID, eventID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectCommit()

		err := store.WithinTx(ctx, func(tx RegistrationStore) error {
			if err := tx.LockParticipation(ctx, userID, eventID); err != nil {
				return err
			}
			joined, err := tx.HasParticipation(ctx, userID, eventID)
			require.NoError(t, err)
			assert.True(t, joined)
			return nil
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("rolls back on error", func(t *testing.T) {
		store, mock := newMockStore(t)
		id := uuid.New()
		failure := errors.New("boom")

		mock.ExpectBegin()
		mock.ExpectQuery(updateSizeQuery).WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows([]string{"current_team_size"}).AddRow(2))
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(tx RegistrationStore) error {
			if _, err := tx.UpdateTeamSize(ctx, id, 1); err != nil {
				return err
			}
			return failure
		})
		assert.ErrorIs(t, err, failure)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested cascade reuses the outer transaction", func(t *testing.T) {
		store, mock := newMockStore(t)
		regID, userID := uuid.New(), uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM team_members WHERE registration_id = \$1`).WithArgs(regID).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM documents WHERE registration_id = \$1`).WithArgs(regID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM registrations WHERE id = \$1`).WithArgs(regID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM profiles WHERE id = \$1`).WithArgs(userID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		var removed int64
		err := store.WithinTx(ctx, func(tx RegistrationStore) error {
			var err error
			if removed, err = tx.DeleteRegistrationCascade(ctx, regID); err != nil {
				return err
			}
			return tx.DeleteProfile(ctx, userID)
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("standalone cascade of a missing registration rolls back", func(t *testing.T) {
		store, mock := newMockStore(t)
		regID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM team_members`).WithArgs(regID).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM documents`).WithArgs(regID).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM registrations`).WithArgs(regID).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := store.DeleteRegistrationCascade(ctx, regID)
		assert.ErrorIs(t, err, ErrRegistrationNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
