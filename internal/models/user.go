package models

import "time"

// User is the profile view of an account. Credentials live in the auth
// collaborator; this service only reads profile and visibility fields.
type User struct {
	ID             int        `db:"id" json:"id"`
	Username       string     `db:"username" json:"username"`
	Email          string     `db:"email" json:"email"`
	Latitude       *float64   `db:"latitude" json:"latitude,omitempty"`
	Longitude      *float64   `db:"longitude" json:"longitude,omitempty"`
	LastUpdate     *time.Time `db:"last_update" json:"last_update,omitempty"`
	GhostMode      bool       `db:"ghost_mode" json:"ghost_mode"`
	GhostModeUntil *time.Time `db:"ghost_mode_until" json:"ghost_mode_until,omitempty"`
	IsOnline       bool       `db:"is_online" json:"is_online"`
	LastSeen       *time.Time `db:"last_seen" json:"last_seen,omitempty"`
}

// Visibility is the ghost-mode state of a user.
// A set GhostModeUntil in the past means the stored flag is stale; callers
// go through the privacy gate which corrects it lazily.
type Visibility struct {
	GhostMode      bool       `db:"ghost_mode" json:"ghost_mode"`
	GhostModeUntil *time.Time `db:"ghost_mode_until" json:"ghost_mode_until,omitempty"`
}

// Location is the latest sample for a user; each new sample replaces it.
type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}
