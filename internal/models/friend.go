package models

import "time"

// Friend is one direction of a friendship. Edges are stored as two directed
// rows and always created or removed together.
type Friend struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	FriendID  int       `db:"friend_id" json:"friend_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FriendInfo is the API view of a friend, with the location already gated
// by the friend's ghost-mode state.
type FriendInfo struct {
	ID          int        `json:"id"`
	Username    string     `json:"username"`
	Location    *Location  `json:"location"`
	LastUpdate  *time.Time `json:"last_update,omitempty"`
	IsGhostMode bool       `json:"is_ghost_mode"`
	IsOnline    bool       `json:"is_online"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
}

// Friend request status values.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// FriendRequest is a pending or accepted invitation. A stale accepted row
// is reset to pending when either side re-sends after the friendship was
// removed; rejecting deletes the row outright.
type FriendRequest struct {
	ID         int       `db:"id" json:"id"`
	SenderID   int       `db:"sender_id" json:"sender_id"`
	ReceiverID int       `db:"receiver_id" json:"receiver_id"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// FriendRequestView joins the counterpart's username for API responses.
type FriendRequestView struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Username  string    `db:"username" json:"username"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ParentalLink connects a parent account to a child account. Only accepted
// links make the parent part of the child's SOS audience.
type ParentalLink struct {
	ID        int       `db:"id" json:"id"`
	ParentID  int       `db:"parent_id" json:"parent_id"`
	ChildID   int       `db:"child_id" json:"child_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChildInfo is the parent-facing view of a linked child.
type ChildInfo struct {
	ID         int        `json:"id"`
	Username   string     `json:"username"`
	Location   *Location  `json:"location"`
	LastUpdate *time.Time `json:"last_update,omitempty"`
	IsOnline   bool       `json:"is_online"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
}
