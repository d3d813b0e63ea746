package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newIdentity(email string) models.Identity {
	return models.Identity{ID: uuid.New(), Email: email}
}

func intPtr(v int) *int {
	return &v
}

func seedTeamEvent(store *repositories.MemoryRegistrationStore, teamSize *int) models.Event {
	return store.AddEvent(models.Event{
		Title:            "Inter-college football",
		RegistrationType: models.RegistrationTeam,
		TeamSize:         teamSize,
		Status:           models.EventUpcoming,
	})
}

func teamInput(eventID uuid.UUID, name string) CreateRegistrationInput {
	return CreateRegistrationInput{
		EventID:            eventID,
		TeamName:           name,
		LeaderMobileNumber: "9876543210",
	}
}

// storeEvents adapts the memory store to EventLookup.
type storeEvents struct {
	store repositories.RegistrationStore
}

func (e storeEvents) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return e.store.GetEvent(ctx, id)
}

func createTeam(t *testing.T, svc TeamService, leader models.Identity, eventID uuid.UUID, name string) *models.Registration {
	t.Helper()
	reg, err := svc.CreateRegistration(context.Background(), leader, teamInput(eventID, name))
	require.NoError(t, err)
	require.NotNil(t, reg.TeamInviteCode)
	return reg
}

func joinTeam(t *testing.T, svc TeamService, member models.Identity, code, name string) *JoinResult {
	t.Helper()
	result, err := svc.JoinViaInvite(context.Background(), member, code, JoinTeamInput{MemberName: name})
	require.NoError(t, err)
	return result
}

// requireSizeInvariant checks current_team_size == 1 + member rows.
func requireSizeInvariant(t *testing.T, store repositories.RegistrationStore, registrationID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	reg, err := store.GetRegistration(ctx, registrationID)
	require.NoError(t, err)
	members, err := store.ListTeamMembers(ctx, registrationID)
	require.NoError(t, err)
	require.Equal(t, 1+len(members), reg.CurrentTeamSize)
}

type cleanerStub struct {
	calls []uuid.UUID
}

func (c *cleanerStub) DeleteRegistrationObjects(ctx context.Context, registrationID uuid.UUID) error {
	c.calls = append(c.calls, registrationID)
	return nil
}

// hookStore wraps a RegistrationStore, records calls (prefixed with "tx:"
// inside WithinTx) and lets a test fail selected writes.
type hookStore struct {
	repositories.RegistrationStore
	inTx  bool
	hooks *storeHooks
}

type storeHooks struct {
	mu    sync.Mutex
	calls []string

	// staleParticipation makes HasParticipation outside a transaction answer
	// false, as a read taken before a concurrent commit would.
	staleParticipation    bool
	insertRegistrationErr error
	insertTeamMemberErr   error
	deleteProfileErr      error
}

func newHookStore(inner repositories.RegistrationStore) (*hookStore, *storeHooks) {
	hooks := &storeHooks{}
	return &hookStore{RegistrationStore: inner, hooks: hooks}, hooks
}

func (h *storeHooks) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (s *hookStore) record(name string) {
	if s.inTx {
		name = "tx:" + name
	}
	s.hooks.mu.Lock()
	s.hooks.calls = append(s.hooks.calls, name)
	s.hooks.mu.Unlock()
}

func (s *hookStore) WithinTx(ctx context.Context, fn func(store repositories.RegistrationStore) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.RegistrationStore.WithinTx(ctx, func(tx repositories.RegistrationStore) error {
		return fn(&hookStore{RegistrationStore: tx, inTx: true, hooks: s.hooks})
	})
}

func (s *hookStore) LockParticipation(ctx context.Context, userID, eventID uuid.UUID) error {
	s.record("lock")
	return s.RegistrationStore.LockParticipation(ctx, userID, eventID)
}

func (s *hookStore) HasParticipation(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	s.record("has_participation")
	if !s.inTx && s.hooks.staleParticipation {
		return false, nil
	}
	return s.RegistrationStore.HasParticipation(ctx, userID, eventID)
}

func (s *hookStore) InsertRegistration(ctx context.Context, reg *models.Registration) error {
	s.record("insert_registration")
	if s.hooks.insertRegistrationErr != nil {
		return s.hooks.insertRegistrationErr
	}
	return s.RegistrationStore.InsertRegistration(ctx, reg)
}

func (s *hookStore) InsertTeamMember(ctx context.Context, member *models.TeamMember) error {
	s.record("insert_team_member")
	if s.hooks.insertTeamMemberErr != nil {
		return s.hooks.insertTeamMemberErr
	}
	return s.RegistrationStore.InsertTeamMember(ctx, member)
}

func (s *hookStore) DeleteProfile(ctx context.Context, userID uuid.UUID) error {
	s.record("delete_profile")
	if s.hooks.deleteProfileErr != nil {
		return s.hooks.deleteProfileErr
	}
	return s.RegistrationStore.DeleteProfile(ctx, userID)
}

// indexOf returns the position of call in calls or -1.
func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}
