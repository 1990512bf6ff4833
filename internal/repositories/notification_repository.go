package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"location-service/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository defines interactions for durable notifications.
type NotificationRepository interface {
	Create(ctx context.Context, userID int, notifType, title, message string, relatedUserID *int) (models.Notification, error)
	List(ctx context.Context, userID, page, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID int) error
	MarkAllRead(ctx context.Context, userID int) error
	UnreadCount(ctx context.Context, userID int) (int, error)
}

// NotificationRepo is a sqlx-backed repository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Create stores a notification record for the user.
func (r *NotificationRepo) Create(ctx context.Context, userID int, notifType, title, message string, relatedUserID *int) (models.Notification, error) {
	var n models.Notification
	err := r.db.QueryRowxContext(ctx, `
        INSERT INTO notifications (user_id, type, title, message, related_user_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, user_id, type, title, message, is_read, related_user_id, created_at`,
		userID, notifType, title, message, relatedUserID).StructScan(&n)
	return n, err
}

// List returns one page of the user's notifications, newest first.
func (r *NotificationRepo) List(ctx context.Context, userID, page, limit int) ([]models.Notification, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	notifications := []models.Notification{}
	err := r.db.SelectContext(ctx, &notifications, `
        SELECT id, user_id, type, title, message, is_read, related_user_id, created_at
        FROM notifications
        WHERE user_id=$1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`, userID, limit, offset)
	return notifications, err
}

// MarkRead marks a single notification as read.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID, userID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND user_id=$2`, notificationID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every notification of the user as read.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read=TRUE WHERE user_id=$1 AND is_read=FALSE`, userID)
	return err
}

// UnreadCount returns the number of unread notifications.
func (r *NotificationRepo) UnreadCount(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND is_read=FALSE`, userID)
	return count, err
}
