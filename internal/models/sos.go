package models

import "time"

// SOSAlert stays active until its owner resolves it.
type SOSAlert struct {
	ID         int        `db:"id" json:"id"`
	UserID     int        `db:"user_id" json:"user_id"`
	Latitude   float64    `db:"latitude" json:"latitude"`
	Longitude  float64    `db:"longitude" json:"longitude"`
	Message    string     `db:"message" json:"message"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// SOSAlertView joins the sender's username for the active-alerts listing.
type SOSAlertView struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Username  string    `db:"username" json:"username"`
	Latitude  float64   `db:"latitude" json:"latitude"`
	Longitude float64   `db:"longitude" json:"longitude"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
