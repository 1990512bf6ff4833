package privacy

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"location-service/internal/models"
)

// Ghost mode duration choices accepted by SetGhostMode.
const (
	DurationHour    = "1h"
	DurationWorkday = "8h"
	DurationDay     = "24h"
	DurationForever = "forever"
)

var ErrInvalidDuration = errors.New("invalid ghost mode duration")

var durationTTL = map[string]time.Duration{
	DurationHour:    time.Hour,
	DurationWorkday: 8 * time.Hour,
	DurationDay:     24 * time.Hour,
}

// Store is the slice of the user repository the gate needs.
type Store interface {
	GetVisibility(ctx context.Context, userID int) (models.Visibility, error)
	SetVisibility(ctx context.Context, userID int, state models.Visibility) error
}

// Gate decides whether a user's location may be broadcast right now.
// Ghost-mode expiry is evaluated lazily on every read; the first read that
// observes a stale flag corrects the stored state in the background. Every
// caller that cares about visibility goes through here, so the expiry rule
// lives in exactly one place.
type Gate struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// NewGate constructs a Gate.
func NewGate(store Store, logger *zap.Logger) *Gate {
	return &Gate{store: store, log: logger, now: time.Now}
}

// IsVisible reports whether the user's location should currently reach
// peers. An expired ghost mode reads as visible immediately; the stored
// flag is corrected best-effort without blocking the decision.
func (g *Gate) IsVisible(ctx context.Context, userID int) (bool, error) {
	state, err := g.store.GetVisibility(ctx, userID)
	if err != nil {
		return false, err
	}

	if !state.GhostMode {
		return true, nil
	}
	if state.GhostModeUntil == nil {
		// Indefinite ghost mode.
		return false, nil
	}
	if state.GhostModeUntil.After(g.now()) {
		return false, nil
	}

	go g.clearExpired(userID)
	return true, nil
}

// Status returns the effective visibility state for the user's own reads,
// applying the same lazy expiry as IsVisible.
func (g *Gate) Status(ctx context.Context, userID int) (models.Visibility, error) {
	state, err := g.store.GetVisibility(ctx, userID)
	if err != nil {
		return models.Visibility{}, err
	}

	if state.GhostMode && state.GhostModeUntil != nil && !state.GhostModeUntil.After(g.now()) {
		go g.clearExpired(userID)
		return models.Visibility{}, nil
	}
	return state, nil
}

// SetGhostMode is the only mutation path besides expiry correction.
// Enabling with a finite duration computes the expiry from now; enabling
// forever leaves it unset; disabling clears both fields.
func (g *Gate) SetGhostMode(ctx context.Context, userID int, enabled bool, duration string) (models.Visibility, error) {
	var state models.Visibility
	if enabled {
		state.GhostMode = true
		if duration != DurationForever {
			ttl, ok := durationTTL[duration]
			if !ok {
				return models.Visibility{}, ErrInvalidDuration
			}
			until := g.now().Add(ttl)
			state.GhostModeUntil = &until
		}
	}

	if err := g.store.SetVisibility(ctx, userID, state); err != nil {
		return models.Visibility{}, err
	}
	return state, nil
}

// EffectiveVisible evaluates an already-loaded visibility state, for
// listings that show many users per request. A stale flag gets the same
// background correction as IsVisible, without another read.
func (g *Gate) EffectiveVisible(userID int, state models.Visibility) bool {
	if !state.GhostMode {
		return true
	}
	if state.GhostModeUntil == nil {
		return false
	}
	if state.GhostModeUntil.After(g.now()) {
		return false
	}
	go g.clearExpired(userID)
	return true
}

// Racing corrections write identical values, so last-write-wins is fine.
func (g *Gate) clearExpired(userID int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := g.store.SetVisibility(ctx, userID, models.Visibility{}); err != nil {
		g.log.Warn("ghost mode expiry write-back failed", zap.Int("user_id", userID), zap.Error(err))
	}
}
