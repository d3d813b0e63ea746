package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, id)
	profile, _ := args.Get(0).(*models.Profile)
	return profile, args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context) ([]models.Profile, error) {
	args := m.Called(ctx)
	profiles, _ := args.Get(0).([]models.Profile)
	return profiles, args.Error(1)
}

func (m *mockUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.UserRole) (*models.Profile, error) {
	args := m.Called(ctx, id, role)
	profile, _ := args.Get(0).(*models.Profile)
	return profile, args.Error(1)
}

func (m *mockUserRepository) ExistingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	args := m.Called(ctx, ids)
	existing, _ := args.Get(0).(map[uuid.UUID]bool)
	return existing, args.Error(1)
}

type mockEventRepository struct {
	mock.Mock
}

func (m *mockEventRepository) Create(ctx context.Context, event *models.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	args := m.Called(ctx, id)
	event, _ := args.Get(0).(*models.Event)
	return event, args.Error(1)
}

func (m *mockEventRepository) List(ctx context.Context, filter repositories.EventFilter, newestFirst bool) ([]models.Event, error) {
	args := m.Called(ctx, filter, newestFirst)
	events, _ := args.Get(0).([]models.Event)
	return events, args.Error(1)
}

func (m *mockEventRepository) Update(ctx context.Context, event *models.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockEventRepository) CountRegistrations(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func TestIsAdmin(t *testing.T) {
	users := &mockUserRepository{}
	svc := NewAdminService(repositories.NewMemoryRegistrationStore(), nil, users, nil, nil, discardLogger())

	adminID, userID, goneID := uuid.New(), uuid.New(), uuid.New()
	users.On("GetByID", mock.Anything, adminID).Return(&models.Profile{ID: adminID, Role: models.RoleAdmin}, nil)
	users.On("GetByID", mock.Anything, userID).Return(&models.Profile{ID: userID, Role: models.RoleUser}, nil)
	users.On("GetByID", mock.Anything, goneID).Return(nil, repositories.ErrUserNotFound)

	ok, err := svc.IsAdmin(context.Background(), adminID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsAdmin(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsAdmin(context.Background(), goneID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteUser_Cascade(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryRegistrationStore()
	teams := NewTeamService(store, nil, discardLogger())
	users := &mockUserRepository{}
	cleaner := &cleanerStub{}
	svc := NewAdminService(store, nil, users, nil, cleaner, discardLogger())

	admin := newIdentity("admin@example.com")
	doomed := newIdentity("doomed@example.com")
	otherLeader := newIdentity("other@example.com")
	teammate := newIdentity("mate@example.com")

	football := seedTeamEvent(store, nil)
	relay := store.AddEvent(models.Event{Title: "Relay", RegistrationType: models.RegistrationTeam})

	led := createTeam(t, teams, doomed, football.ID, "Falcons")
	joinTeam(t, teams, teammate, *led.TeamInviteCode, "Mate")

	otherTeam := createTeam(t, teams, otherLeader, relay.ID, "Hawks")
	joinTeam(t, teams, doomed, *otherTeam.TeamInviteCode, "Doomed")
	joinTeam(t, teams, teammate, *otherTeam.TeamInviteCode, "Mate")

	users.On("GetByID", mock.Anything, doomed.ID).Return(&models.Profile{ID: doomed.ID}, nil)

	result, err := svc.DeleteUser(ctx, admin, doomed.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RegistrationsDeleted)
	assert.Equal(t, int64(1), result.MembersDeleted)
	assert.Equal(t, 1, result.MembershipsRemoved)
	assert.Equal(t, []uuid.UUID{doomed.ID}, store.DeletedProfiles())
	users.AssertExpectations(t)

	_, err = store.GetRegistration(ctx, led.ID)
	assert.ErrorIs(t, err, repositories.ErrRegistrationNotFound)
	remaining, err := store.GetRegistration(ctx, otherTeam.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining.CurrentTeamSize)
	requireSizeInvariant(t, store, otherTeam.ID)
	assert.Equal(t, []uuid.UUID{led.ID}, cleaner.calls)
}

func TestDeleteUser_Guards(t *testing.T) {
	users := &mockUserRepository{}
	store := repositories.NewMemoryRegistrationStore()
	svc := NewAdminService(store, nil, users, nil, nil, discardLogger())
	admin := newIdentity("admin@example.com")

	_, err := svc.DeleteUser(context.Background(), admin, admin.ID)
	assert.ErrorIs(t, err, ErrCannotDeleteSelf)

	missing := uuid.New()
	users.On("GetByID", mock.Anything, missing).Return(nil, repositories.ErrUserNotFound)
	_, err = svc.DeleteUser(context.Background(), admin, missing)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, store.DeletedProfiles())
}

func TestDeleteUser_ProfileFailureRollsBackCascade(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryRegistrationStore()
	hooked, hooks := newHookStore(store)
	teams := NewTeamService(hooked, nil, discardLogger())
	users := &mockUserRepository{}
	cleaner := &cleanerStub{}
	svc := NewAdminService(hooked, nil, users, nil, cleaner, discardLogger())

	doomed := newIdentity("doomed@example.com")
	football := seedTeamEvent(store, nil)
	relay := store.AddEvent(models.Event{Title: "Relay", RegistrationType: models.RegistrationTeam})
	led := createTeam(t, teams, doomed, football.ID, "Falcons")
	other := createTeam(t, teams, newIdentity("other@example.com"), relay.ID, "Hawks")
	joinTeam(t, teams, doomed, *other.TeamInviteCode, "Doomed")

	users.On("GetByID", mock.Anything, doomed.ID).Return(&models.Profile{ID: doomed.ID}, nil)
	hooks.deleteProfileErr = errors.New("connection reset")

	_, err := svc.DeleteUser(ctx, newIdentity("admin@example.com"), doomed.ID)
	require.Error(t, err)

	_, err = store.GetRegistration(ctx, led.ID)
	assert.NoError(t, err)
	remaining, err := store.GetRegistration(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining.CurrentTeamSize)
	requireSizeInvariant(t, store, other.ID)
	assert.Empty(t, store.DeletedProfiles())
	assert.Empty(t, cleaner.calls)
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()
	events := &mockEventRepository{}
	svc := NewAdminService(repositories.NewMemoryRegistrationStore(), events, nil, nil, nil, discardLogger())

	busy := uuid.New()
	events.On("CountRegistrations", mock.Anything, busy).Return(3, nil)
	assert.ErrorIs(t, svc.DeleteEvent(ctx, busy, false), ErrEventInUse)
	events.AssertNotCalled(t, "Delete", mock.Anything, busy)

	events.On("Delete", mock.Anything, busy).Return(nil).Once()
	require.NoError(t, svc.DeleteEvent(ctx, busy, true))

	missing := uuid.New()
	events.On("CountRegistrations", mock.Anything, missing).Return(0, nil)
	events.On("Delete", mock.Anything, missing).Return(repositories.ErrEventNotFound)
	assert.ErrorIs(t, svc.DeleteEvent(ctx, missing, false), ErrEventNotFound)
	events.AssertExpectations(t)
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	events := &mockEventRepository{}
	svc := NewAdminService(repositories.NewMemoryRegistrationStore(), events, nil, nil, nil, discardLogger())
	admin := newIdentity("admin@example.com")
	date := "2026-11-20"

	events.On("Create", mock.Anything, mock.AnythingOfType("*models.Event")).Return(nil).Once()
	event, err := svc.CreateEvent(ctx, admin, EventInput{
		SportID:          uuid.New(),
		Title:            "  Football Cup ",
		EventDate:        &date,
		RegistrationType: "team",
		TeamSize:         intPtr(11),
	})
	require.NoError(t, err)
	assert.Equal(t, "Football Cup", event.Title)
	assert.Equal(t, models.EventUpcoming, event.Status)
	require.NotNil(t, event.EventDate)
	assert.Equal(t, 20, event.EventDate.Day())
	assert.Equal(t, &admin.ID, event.CreatedBy)

	_, err = svc.CreateEvent(ctx, admin, EventInput{SportID: uuid.New(), Title: "Relay", RegistrationType: "pairs"})
	assert.Equal(t, CodeValidationFailed, CodeOf(err))

	bad := "20-11-2026"
	_, err = svc.CreateEvent(ctx, admin, EventInput{SportID: uuid.New(), Title: "Relay", RegistrationType: "team", EventDate: &bad})
	assert.Equal(t, CodeValidationFailed, CodeOf(err))

	events.On("Create", mock.Anything, mock.Anything).Return(repositories.ErrEventSportInvalid).Once()
	_, err = svc.CreateEvent(ctx, admin, EventInput{SportID: uuid.New(), Title: "Relay", RegistrationType: "individual"})
	assert.ErrorIs(t, err, ErrSportNotFound)
}

func TestUpdateUserRole(t *testing.T) {
	users := &mockUserRepository{}
	svc := NewAdminService(repositories.NewMemoryRegistrationStore(), nil, users, nil, nil, discardLogger())
	userID := uuid.New()

	_, err := svc.UpdateUserRole(context.Background(), userID, UpdateRoleInput{Role: "superuser"})
	assert.Equal(t, CodeValidationFailed, CodeOf(err))

	users.On("UpdateRole", mock.Anything, userID, models.RoleAdmin).Return(&models.Profile{ID: userID, Role: models.RoleAdmin}, nil)
	profile, err := svc.UpdateUserRole(context.Background(), userID, UpdateRoleInput{Role: " Admin "})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, profile.Role)
}
