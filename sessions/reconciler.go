package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const eventBufferSize = 64

// SessionInvalidated is emitted when an active session's account no longer exists.
type SessionInvalidated struct {
	UserID uuid.UUID `json:"user_id"`
	At     time.Time `json:"at"`
}

// IdentityChecker reports which of the given users still exist at the identity source.
type IdentityChecker interface {
	ExistingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)
}

// Reconciler periodically re-validates active sessions and revokes the ones
// whose account was deleted.
type Reconciler struct {
	registry   Registry
	identities IdentityChecker
	interval   time.Duration
	logger     *slog.Logger
	events     chan SessionInvalidated
}

func NewReconciler(registry Registry, identities IdentityChecker, interval time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		registry:   registry,
		identities: identities,
		interval:   interval,
		logger:     logger,
		events:     make(chan SessionInvalidated, eventBufferSize),
	}
}

// Events is closed when Run returns.
func (r *Reconciler) Events() <-chan SessionInvalidated {
	return r.events
}

func (r *Reconciler) Run(ctx context.Context) {
	defer close(r.events)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Session reconciler started", slog.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Session reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.ReconcileOnce(ctx); err != nil {
				r.logger.Error("Session reconciliation failed", slog.Any("error", err))
			}
		}
	}
}

// ReconcileOnce runs a single pass and returns the number of revoked sessions.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (int, error) {
	active, err := r.registry.Active(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active sessions: %w", err)
	}
	if len(active) == 0 {
		return 0, nil
	}

	existing, err := r.identities.ExistingIDs(ctx, active)
	if err != nil {
		return 0, fmt.Errorf("failed to check identities: %w", err)
	}

	revoked := 0
	for _, id := range active {
		if existing[id] {
			continue
		}
		if err := r.registry.Revoke(ctx, id); err != nil {
			r.logger.Error("Failed to revoke session", slog.String("user_id", id.String()), slog.Any("error", err))
			continue
		}
		revoked++
		r.logger.Warn("Session invalidated: account no longer exists", slog.String("user_id", id.String()))
		r.emit(SessionInvalidated{UserID: id, At: time.Now()})
	}
	return revoked, nil
}

func (r *Reconciler) emit(event SessionInvalidated) {
	select {
	case r.events <- event:
	default:
		r.logger.Warn("Session event dropped: no consumer", slog.String("user_id", event.UserID.String()))
	}
}
