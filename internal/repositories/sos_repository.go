package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"location-service/internal/models"
)

var ErrAlertNotFound = errors.New("sos alert not found")

// SOSRepository defines interactions for SOS alerts.
type SOSRepository interface {
	CreateAlert(ctx context.Context, userID int, lat, lng float64, message string) (models.SOSAlert, error)
	ResolveAlert(ctx context.Context, alertID, userID int) error
	ActiveAlertsFor(ctx context.Context, userID int) ([]models.SOSAlertView, error)
}

// SOSRepo is a sqlx-backed repository.
type SOSRepo struct {
	db *sqlx.DB
}

// NewSOSRepo constructs SOSRepo.
func NewSOSRepo(db *sqlx.DB) *SOSRepo {
	return &SOSRepo{db: db}
}

// CreateAlert stores an active alert and returns it with id and timestamp.
func (r *SOSRepo) CreateAlert(ctx context.Context, userID int, lat, lng float64, message string) (models.SOSAlert, error) {
	var alert models.SOSAlert
	err := r.db.QueryRowxContext(ctx, `
        INSERT INTO sos_alerts (user_id, latitude, longitude, message)
        VALUES ($1, $2, $3, $4)
        RETURNING id, user_id, latitude, longitude, message, is_active, created_at, resolved_at`,
		userID, lat, lng, message).StructScan(&alert)
	return alert, err
}

// ResolveAlert deactivates an alert; only its owner may resolve it.
func (r *SOSRepo) ResolveAlert(ctx context.Context, alertID, userID int) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE sos_alerts SET is_active=FALSE, resolved_at=NOW()
        WHERE id=$1 AND user_id=$2 AND is_active=TRUE`, alertID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// ActiveAlertsFor returns the still-active alerts of the user's friends,
// newest first.
func (r *SOSRepo) ActiveAlertsFor(ctx context.Context, userID int) ([]models.SOSAlertView, error) {
	alerts := []models.SOSAlertView{}
	err := r.db.SelectContext(ctx, &alerts, `
        SELECT s.id, s.user_id, u.username, s.latitude, s.longitude, s.message, s.created_at
        FROM sos_alerts s
        JOIN users u ON s.user_id = u.id
        JOIN friends f ON f.friend_id = s.user_id AND f.user_id = $1
        WHERE s.is_active = TRUE
        ORDER BY s.created_at DESC`, userID)
	return alerts, err
}
