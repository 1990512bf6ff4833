package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"location-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository covers profile reads, visibility state and location samples.
type UserRepository interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	SearchUsers(ctx context.Context, query string, excludeID int) ([]models.User, error)
	GetVisibility(ctx context.Context, userID int) (models.Visibility, error)
	SetVisibility(ctx context.Context, userID int, state models.Visibility) error
	SaveLocation(ctx context.Context, userID int, lat, lng float64, at time.Time) error
	SetOnline(ctx context.Context, userID int, online bool) error
}

// UserRepo is a sqlx-backed repository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, username, email, latitude, longitude, last_update, ghost_mode, ghost_mode_until, is_online, last_seen`

// GetUser retrieves a single profile.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUserByUsername retrieves a profile by exact username.
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// SearchUsers returns up to 20 users whose username contains the query.
func (r *UserRepo) SearchUsers(ctx context.Context, query string, excludeID int) ([]models.User, error) {
	users := []models.User{}
	err := r.db.SelectContext(ctx, &users, `
        SELECT `+userColumns+` FROM users
        WHERE username ILIKE '%' || $1 || '%' AND id <> $2
        ORDER BY username LIMIT 20`, query, excludeID)
	return users, err
}

// GetVisibility loads the raw ghost-mode state. Expiry is not evaluated
// here; that is the privacy gate's job.
func (r *UserRepo) GetVisibility(ctx context.Context, userID int) (models.Visibility, error) {
	var state models.Visibility
	err := r.db.GetContext(ctx, &state, `SELECT ghost_mode, ghost_mode_until FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Visibility{}, ErrUserNotFound
	}
	return state, err
}

// SetVisibility overwrites the ghost-mode state.
func (r *UserRepo) SetVisibility(ctx context.Context, userID int, state models.Visibility) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET ghost_mode=$1, ghost_mode_until=$2 WHERE id=$3`,
		state.GhostMode, state.GhostModeUntil, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SaveLocation replaces the user's last-known sample.
func (r *UserRepo) SaveLocation(ctx context.Context, userID int, lat, lng float64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET latitude=$1, longitude=$2, last_update=$3 WHERE id=$4`,
		lat, lng, at, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetOnline records presence transitions for the profile view.
func (r *UserRepo) SetOnline(ctx context.Context, userID int, online bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_online=$1, last_seen=NOW() WHERE id=$2`, online, userID)
	return err
}
