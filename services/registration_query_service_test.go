package services

import (
	"context"
	"testing"

	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPublicURL = "https://sports.example/"

func newQueryFixture(t *testing.T, teamSize *int) (*repositories.MemoryRegistrationStore, TeamService, RegistrationQueryService, models.Event) {
	t.Helper()
	store := repositories.NewMemoryRegistrationStore()
	teams := NewTeamService(store, nil, discardLogger())
	queries := NewRegistrationQueryService(store, storeEvents{store: store}, testPublicURL)
	return store, teams, queries, seedTeamEvent(store, teamSize)
}

func TestGetUserRegistrations_RolesAndInviteVisibility(t *testing.T) {
	ctx := context.Background()
	store, teams, queries, event := newQueryFixture(t, nil)
	leader := newIdentity("lead@example.com")
	member := newIdentity("member@example.com")

	reg := createTeam(t, teams, leader, event.ID, "Falcons")
	joinTeam(t, teams, member, *reg.TeamInviteCode, "Member")

	other := store.AddEvent(models.Event{Title: "Relay", RegistrationType: models.RegistrationTeam})
	own := createTeam(t, teams, member, other.ID, "Hawks")

	regs, err := queries.GetUserRegistrations(ctx, member)
	require.NoError(t, err)
	require.Len(t, regs, 2)

	byID := map[uuid.UUID]*models.Registration{}
	for _, r := range regs {
		byID[r.ID] = r
		require.NotNil(t, r.Event)
	}
	assert.Equal(t, models.RoleMember, byID[reg.ID].UserRole)
	assert.Nil(t, byID[reg.ID].TeamInviteCode)
	assert.Len(t, byID[reg.ID].TeamMembers, 1)

	assert.Equal(t, models.RoleLeader, byID[own.ID].UserRole)
	assert.NotNil(t, byID[own.ID].TeamInviteCode)

	registered, err := queries.CheckUserRegistration(ctx, member.ID, event.ID)
	require.NoError(t, err)
	assert.True(t, registered)
	registered, err = queries.CheckUserRegistration(ctx, uuid.New(), event.ID)
	require.NoError(t, err)
	assert.False(t, registered)
}

func TestGetTeamDetails(t *testing.T) {
	ctx := context.Background()
	_, teams, queries, event := newQueryFixture(t, intPtr(4))
	leader := newIdentity("lead@example.com")
	member := newIdentity("member@example.com")
	reg := createTeam(t, teams, leader, event.ID, "Falcons")
	joinTeam(t, teams, member, *reg.TeamInviteCode, "Member")

	details, err := queries.GetTeamDetails(ctx, reg.ID, leader)
	require.NoError(t, err)
	assert.Equal(t, 2, details.CurrentSize)
	require.NotNil(t, details.MaxSize)
	assert.Equal(t, 4, *details.MaxSize)
	assert.Len(t, details.Members, 1)
	assert.NotNil(t, details.Registration.TeamInviteCode)

	details, err = queries.GetTeamDetails(ctx, reg.ID, member)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, details.Registration.UserRole)
	assert.Nil(t, details.Registration.TeamInviteCode)

	_, err = queries.GetTeamDetails(ctx, reg.ID, newIdentity("stranger@example.com"))
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestInvitePreviewAndCode(t *testing.T) {
	ctx := context.Background()
	_, teams, queries, event := newQueryFixture(t, intPtr(2))
	leader := newIdentity("lead@example.com")
	reg := createTeam(t, teams, leader, event.ID, "Falcons")
	code := *reg.TeamInviteCode

	preview, err := queries.GetInvitePreview(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "Falcons", preview.TeamName)
	assert.Equal(t, event.Title, preview.EventTitle)
	assert.False(t, preview.IsFull)

	joinTeam(t, teams, newIdentity("m@example.com"), code, "Member")
	preview, err = queries.GetInvitePreview(ctx, code)
	require.NoError(t, err)
	assert.True(t, preview.IsFull)
	assert.Equal(t, 2, preview.CurrentSize)

	_, err = queries.GetInvitePreview(ctx, "ZZZZZZZZ")
	assert.ErrorIs(t, err, ErrInvalidInviteCode)

	invite, err := queries.GetTeamInviteCode(ctx, reg.ID, leader)
	require.NoError(t, err)
	assert.Equal(t, code, invite.Code)
	assert.Equal(t, "https://sports.example/join/"+code, invite.JoinURL)

	_, err = queries.GetTeamInviteCode(ctx, reg.ID, newIdentity("m@example.com"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCanAddTeamMember(t *testing.T) {
	ctx := context.Background()
	store, teams, queries, event := newQueryFixture(t, intPtr(2))
	leader := newIdentity("lead@example.com")
	reg := createTeam(t, teams, leader, event.ID, "Falcons")

	capacity, err := queries.CanAddTeamMember(ctx, reg.ID, leader)
	require.NoError(t, err)
	assert.True(t, capacity.CanAdd)
	assert.Empty(t, capacity.Reason)

	joinTeam(t, teams, newIdentity("m@example.com"), *reg.TeamInviteCode, "Member")
	capacity, err = queries.CanAddTeamMember(ctx, reg.ID, leader)
	require.NoError(t, err)
	assert.False(t, capacity.CanAdd)
	assert.Equal(t, "Team is full", capacity.Reason)

	event.Status = models.EventCompleted
	store.AddEvent(event)
	capacity, err = queries.CanAddTeamMember(ctx, reg.ID, leader)
	require.NoError(t, err)
	assert.Equal(t, "Event is not accepting registrations", capacity.Reason)

	_, err = queries.CanAddTeamMember(ctx, reg.ID, newIdentity("x@example.com"))
	assert.ErrorIs(t, err, ErrAccessDenied)
}
