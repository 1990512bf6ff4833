package models

import "time"

// Message is a direct message between two friends.
type Message struct {
	ID         int       `db:"id" json:"id"`
	SenderID   int       `db:"sender_id" json:"sender_id"`
	ReceiverID int       `db:"receiver_id" json:"receiver_id"`
	Text       string    `db:"message" json:"message"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// UnreadCount groups unread messages by sender.
type UnreadCount struct {
	SenderID int `db:"sender_id" json:"sender_id"`
	Count    int `db:"count" json:"count"`
}
