package models

import "time"

// Notification types.
const (
	NotificationSOS           = "sos"
	NotificationFriendRequest = "friend_request"
)

// Notification is a durable per-user record; unlike websocket pushes it is
// created even when the recipient is offline.
type Notification struct {
	ID            int       `db:"id" json:"id"`
	UserID        int       `db:"user_id" json:"user_id"`
	Type          string    `db:"type" json:"type"`
	Title         string    `db:"title" json:"title"`
	Message       string    `db:"message" json:"message"`
	IsRead        bool      `db:"is_read" json:"is_read"`
	RelatedUserID *int      `db:"related_user_id" json:"related_user_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
