package repositories

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/sports-registration/models"
	"github.com/google/uuid"
)

type memoryState struct {
	events        map[uuid.UUID]models.Event
	registrations map[uuid.UUID]models.Registration
	members       map[uuid.UUID]models.TeamMember
	regOrder      []uuid.UUID
	memberOrder   []uuid.UUID
	attempts      []models.DuplicateAttempt
	deleted       []uuid.UUID
}

func (s *memoryState) clone() memoryState {
	c := memoryState{
		events:        make(map[uuid.UUID]models.Event, len(s.events)),
		registrations: make(map[uuid.UUID]models.Registration, len(s.registrations)),
		members:       make(map[uuid.UUID]models.TeamMember, len(s.members)),
		regOrder:      append([]uuid.UUID(nil), s.regOrder...),
		memberOrder:   append([]uuid.UUID(nil), s.memberOrder...),
		attempts:      append([]models.DuplicateAttempt(nil), s.attempts...),
		deleted:       append([]uuid.UUID(nil), s.deleted...),
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.registrations {
		c.registrations[k] = v
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	return c
}

// MemoryRegistrationStore is an in-process RegistrationStore enforcing the
// same constraints as the postgres schema. A single mutex serializes access;
// WithinTx holds it for the whole callback and restores a snapshot on error.
type MemoryRegistrationStore struct {
	mu    *sync.Mutex
	state *memoryState
	inTx  bool
}

func NewMemoryRegistrationStore() *MemoryRegistrationStore {
	return &MemoryRegistrationStore{
		mu: &sync.Mutex{},
		state: &memoryState{
			events:        make(map[uuid.UUID]models.Event),
			registrations: make(map[uuid.UUID]models.Registration),
			members:       make(map[uuid.UUID]models.TeamMember),
		},
	}
}

func (s *MemoryRegistrationStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// AddEvent seeds an event; a zero ID is replaced with a new one.
func (s *MemoryRegistrationStore) AddEvent(e models.Event) models.Event {
	defer s.lock()()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = models.EventUpcoming
	}
	s.state.events[e.ID] = e
	return e
}

func (s *MemoryRegistrationStore) DuplicateAttempts() []models.DuplicateAttempt {
	defer s.lock()()
	return append([]models.DuplicateAttempt(nil), s.state.attempts...)
}

// DeletedProfiles lists user ids passed to DeleteProfile.
func (s *MemoryRegistrationStore) DeletedProfiles() []uuid.UUID {
	defer s.lock()()
	return append([]uuid.UUID(nil), s.state.deleted...)
}

func (s *MemoryRegistrationStore) WithinTx(ctx context.Context, fn func(store RegistrationStore) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	tx := &MemoryRegistrationStore{mu: s.mu, state: s.state, inTx: true}

	panicked := true
	defer func() {
		if panicked {
			*s.state = snapshot
		}
	}()

	err := fn(tx)
	panicked = false
	if err != nil {
		*s.state = snapshot
	}
	return err
}

func (s *MemoryRegistrationStore) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	defer s.lock()()
	e, ok := s.state.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	return &e, nil
}

func (s *MemoryRegistrationStore) findRegistration(match func(r *models.Registration) bool) (*models.Registration, error) {
	for _, id := range s.state.regOrder {
		reg := s.state.registrations[id]
		if match(&reg) {
			return &reg, nil
		}
	}
	return nil, ErrRegistrationNotFound
}

func (s *MemoryRegistrationStore) GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	defer s.lock()()
	reg, ok := s.state.registrations[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	return &reg, nil
}

func (s *MemoryRegistrationStore) FindRegistration(ctx context.Context, userID, eventID uuid.UUID) (*models.Registration, error) {
	defer s.lock()()
	return s.findRegistration(func(r *models.Registration) bool {
		return r.UserID == userID && r.EventID == eventID
	})
}

func (s *MemoryRegistrationStore) FindRegistrationByTeamName(ctx context.Context, eventID uuid.UUID, teamName string) (*models.Registration, error) {
	defer s.lock()()
	return s.findRegistration(func(r *models.Registration) bool {
		return r.EventID == eventID && r.TeamName == teamName
	})
}

func (s *MemoryRegistrationStore) ResolveInviteCode(ctx context.Context, code string) (*models.Registration, error) {
	defer s.lock()()
	return s.findRegistration(func(r *models.Registration) bool {
		return r.IsTeam() && r.TeamInviteCode != nil && *r.TeamInviteCode == code
	})
}

func (s *MemoryRegistrationStore) HasParticipation(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	defer s.lock()()
	for _, reg := range s.state.registrations {
		if reg.EventID != eventID {
			continue
		}
		if reg.UserID == userID {
			return true, nil
		}
	}
	for _, m := range s.state.members {
		if !m.IsLinkedTo(userID) {
			continue
		}
		if reg, ok := s.state.registrations[m.RegistrationID]; ok && reg.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryRegistrationStore) memberRole(regID, userID uuid.UUID, email string) bool {
	for _, m := range s.state.members {
		if m.RegistrationID != regID {
			continue
		}
		if m.IsLinkedTo(userID) {
			return true
		}
		if email != "" && m.UserID == nil && m.MemberEmail != nil && models.NormalizeEmail(*m.MemberEmail) == email {
			return true
		}
	}
	return false
}

func (s *MemoryRegistrationStore) ListUserRegistrations(ctx context.Context, userID uuid.UUID, email string) ([]*models.Registration, error) {
	defer s.lock()()
	email = models.NormalizeEmail(email)

	result := make([]*models.Registration, 0)
	for i := len(s.state.regOrder) - 1; i >= 0; i-- {
		reg := s.state.registrations[s.state.regOrder[i]]
		switch {
		case reg.UserID == userID:
			reg.UserRole = models.RoleLeader
		case s.memberRole(reg.ID, userID, email):
			reg.UserRole = models.RoleMember
		default:
			continue
		}
		result = append(result, &reg)
	}
	return result, nil
}

func (s *MemoryRegistrationStore) ListRegistrationsByLeader(ctx context.Context, userID uuid.UUID) ([]*models.Registration, error) {
	defer s.lock()()
	result := make([]*models.Registration, 0)
	for _, id := range s.state.regOrder {
		reg := s.state.registrations[id]
		if reg.UserID == userID {
			result = append(result, &reg)
		}
	}
	return result, nil
}

func (s *MemoryRegistrationStore) InsertRegistration(ctx context.Context, reg *models.Registration) error {
	defer s.lock()()

	if _, ok := s.state.events[reg.EventID]; !ok {
		return ErrRegistrationInvalid
	}
	for _, existing := range s.state.registrations {
		if existing.UserID == reg.UserID && existing.EventID == reg.EventID {
			return ErrRegistrationConflict
		}
		if existing.EventID == reg.EventID && existing.TeamName == reg.TeamName {
			return ErrTeamNameConflict
		}
		if reg.TeamInviteCode != nil && existing.TeamInviteCode != nil && *existing.TeamInviteCode == *reg.TeamInviteCode {
			return ErrInviteCodeConflict
		}
	}

	reg.ID = uuid.New()
	reg.CreatedAt = time.Now()
	stored := *reg
	stored.UserRole, stored.Event, stored.TeamMembers, stored.Documents = models.RoleNone, nil, nil, nil
	s.state.registrations[reg.ID] = stored
	s.state.regOrder = append(s.state.regOrder, reg.ID)
	return nil
}

func (s *MemoryRegistrationStore) UpdateTeamSize(ctx context.Context, registrationID uuid.UUID, delta int) (int, error) {
	defer s.lock()()

	reg, ok := s.state.registrations[registrationID]
	if !ok {
		return 0, ErrRegistrationNotFound
	}
	newSize := reg.CurrentTeamSize + delta
	if newSize < 1 {
		return 0, ErrTeamSizeUnderflow
	}
	if delta > 0 {
		if e, ok := s.state.events[reg.EventID]; ok && !e.HasRoomFor(reg.CurrentTeamSize, delta) {
			return 0, ErrTeamCapacityReached
		}
	}
	reg.CurrentTeamSize = newSize
	s.state.registrations[registrationID] = reg
	return newSize, nil
}

func (s *MemoryRegistrationStore) DeleteRegistrationCascade(ctx context.Context, registrationID uuid.UUID) (int64, error) {
	defer s.lock()()

	if _, ok := s.state.registrations[registrationID]; !ok {
		return 0, ErrRegistrationNotFound
	}
	var removed int64
	for id, m := range s.state.members {
		if m.RegistrationID == registrationID {
			s.removeMember(id)
			removed++
		}
	}
	delete(s.state.registrations, registrationID)
	s.state.regOrder = removeID(s.state.regOrder, registrationID)
	return removed, nil
}

func (s *MemoryRegistrationStore) InsertTeamMember(ctx context.Context, member *models.TeamMember) error {
	defer s.lock()()

	if _, ok := s.state.registrations[member.RegistrationID]; !ok {
		return ErrRegistrationNotFound
	}
	if member.UserID != nil {
		for _, m := range s.state.members {
			if m.RegistrationID == member.RegistrationID && m.IsLinkedTo(*member.UserID) {
				return ErrTeamMemberConflict
			}
		}
	}

	member.ID = uuid.New()
	member.CreatedAt = time.Now()
	s.state.members[member.ID] = *member
	s.state.memberOrder = append(s.state.memberOrder, member.ID)
	return nil
}

func (s *MemoryRegistrationStore) GetTeamMember(ctx context.Context, memberID uuid.UUID) (*models.TeamMember, error) {
	defer s.lock()()
	m, ok := s.state.members[memberID]
	if !ok {
		return nil, ErrTeamMemberNotFound
	}
	return &m, nil
}

func (s *MemoryRegistrationStore) findMember(match func(m *models.TeamMember) bool) (*models.TeamMember, error) {
	for _, id := range s.state.memberOrder {
		m := s.state.members[id]
		if match(&m) {
			return &m, nil
		}
	}
	return nil, ErrTeamMemberNotFound
}

func (s *MemoryRegistrationStore) FindTeamMemberByUser(ctx context.Context, registrationID, userID uuid.UUID) (*models.TeamMember, error) {
	defer s.lock()()
	return s.findMember(func(m *models.TeamMember) bool {
		return m.RegistrationID == registrationID && m.IsLinkedTo(userID)
	})
}

func (s *MemoryRegistrationStore) FindTeamMemberByEmail(ctx context.Context, registrationID uuid.UUID, email string) (*models.TeamMember, error) {
	defer s.lock()()
	normalized := models.NormalizeEmail(email)
	if normalized == "" {
		return nil, ErrTeamMemberNotFound
	}
	return s.findMember(func(m *models.TeamMember) bool {
		return m.RegistrationID == registrationID && m.UserID == nil &&
			m.MemberEmail != nil && strings.EqualFold(models.NormalizeEmail(*m.MemberEmail), normalized)
	})
}

func (s *MemoryRegistrationStore) listMembers(match func(m *models.TeamMember) bool) []models.TeamMember {
	members := make([]models.TeamMember, 0)
	for _, id := range s.state.memberOrder {
		m := s.state.members[id]
		if match(&m) {
			members = append(members, m)
		}
	}
	return members
}

func (s *MemoryRegistrationStore) ListTeamMembers(ctx context.Context, registrationID uuid.UUID) ([]models.TeamMember, error) {
	defer s.lock()()
	return s.listMembers(func(m *models.TeamMember) bool { return m.RegistrationID == registrationID }), nil
}

func (s *MemoryRegistrationStore) ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]models.TeamMember, error) {
	defer s.lock()()
	return s.listMembers(func(m *models.TeamMember) bool { return m.IsLinkedTo(userID) }), nil
}

func (s *MemoryRegistrationStore) DeleteTeamMember(ctx context.Context, memberID uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.state.members[memberID]; !ok {
		return ErrTeamMemberNotFound
	}
	s.removeMember(memberID)
	return nil
}

func (s *MemoryRegistrationStore) removeMember(memberID uuid.UUID) {
	delete(s.state.members, memberID)
	s.state.memberOrder = removeID(s.state.memberOrder, memberID)
}

func (s *MemoryRegistrationStore) RecordDuplicateAttempt(ctx context.Context, attempt *models.DuplicateAttempt) error {
	defer s.lock()()
	attempt.ID = int64(len(s.state.attempts) + 1)
	attempt.AttemptedAt = time.Now()
	s.state.attempts = append(s.state.attempts, *attempt)
	return nil
}

func removeID(ids []uuid.UUID, target uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// LockParticipation only checks that a transaction is open; WithinTx already
// holds the store mutex.
func (s *MemoryRegistrationStore) LockParticipation(ctx context.Context, userID, eventID uuid.UUID) error {
	if !s.inTx {
		return ErrLockOutsideTx
	}
	return nil
}

// DeleteProfile records the deletion; profiles themselves are not modelled.
func (s *MemoryRegistrationStore) DeleteProfile(ctx context.Context, userID uuid.UUID) error {
	defer s.lock()()
	s.state.deleted = append(s.state.deleted, userID)
	return nil
}
