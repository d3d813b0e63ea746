package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultActiveTTL drops sessions that have not made a request for this long.
	DefaultActiveTTL = time.Hour
	// DefaultRevokedTTL outlives any access token issued before the revocation.
	DefaultRevokedTTL = 24 * time.Hour
)

// Registry tracks which users have live sessions and which were revoked.
type Registry interface {
	// Touch records a request from userID.
	Touch(ctx context.Context, userID uuid.UUID) error
	Active(ctx context.Context) ([]uuid.UUID, error)
	Revoke(ctx context.Context, userID uuid.UUID) error
	IsRevoked(ctx context.Context, userID uuid.UUID) (bool, error)
}

type memoryRegistry struct {
	mu         sync.Mutex
	active     map[uuid.UUID]time.Time
	revoked    map[uuid.UUID]time.Time
	activeTTL  time.Duration
	revokedTTL time.Duration
	now        func() time.Time
}

func NewMemoryRegistry(activeTTL, revokedTTL time.Duration) Registry {
	return newMemoryRegistry(activeTTL, revokedTTL, time.Now)
}

func newMemoryRegistry(activeTTL, revokedTTL time.Duration, now func() time.Time) *memoryRegistry {
	return &memoryRegistry{
		active:     make(map[uuid.UUID]time.Time),
		revoked:    make(map[uuid.UUID]time.Time),
		activeTTL:  activeTTL,
		revokedTTL: revokedTTL,
		now:        now,
	}
}

func (r *memoryRegistry) Touch(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[userID] = r.now()
	return nil
}

func (r *memoryRegistry) Active(ctx context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.activeTTL)
	ids := make([]uuid.UUID, 0, len(r.active))
	for id, seen := range r.active {
		if seen.Before(cutoff) {
			delete(r.active, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memoryRegistry) Revoke(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, userID)
	r.revoked[userID] = r.now().Add(r.revokedTTL)
	return nil
}

func (r *memoryRegistry) IsRevoked(ctx context.Context, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.revoked[userID]
	if !ok {
		return false, nil
	}
	if r.now().After(until) {
		delete(r.revoked, userID)
		return false, nil
	}
	return true, nil
}
