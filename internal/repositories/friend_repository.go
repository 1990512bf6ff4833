package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"location-service/internal/models"
)

var (
	ErrAlreadyFriends     = errors.New("users are already friends")
	ErrRequestPending     = errors.New("friend request already pending")
	ErrRequestNotFound    = errors.New("friend request not found")
	ErrFriendshipNotFound = errors.New("friendship not found")
)

// FriendRepository covers friend edges and the request flow leading to them.
// An edge is two directed rows; both are written or removed in one
// transaction so a lookup from either side stays a single-direction query.
type FriendRepository interface {
	GetFriendIDs(ctx context.Context, userID int) ([]int, error)
	AreFriends(ctx context.Context, userID, friendID int) (bool, error)
	ListFriends(ctx context.Context, userID int) ([]models.User, error)
	AddFriendEdge(ctx context.Context, userID, friendID int) error
	RemoveFriendEdge(ctx context.Context, userID, friendID int) error

	CreateOrResetRequest(ctx context.Context, senderID, receiverID int) (models.FriendRequest, error)
	ListReceivedRequests(ctx context.Context, userID int) ([]models.FriendRequestView, error)
	ListSentRequests(ctx context.Context, userID int) ([]models.FriendRequestView, error)
	AcceptRequest(ctx context.Context, requestID, receiverID int) (models.FriendRequest, error)
	RejectRequest(ctx context.Context, requestID, userID int) error
}

// FriendRepo is a sqlx-backed repository.
type FriendRepo struct {
	db *sqlx.DB
}

// NewFriendRepo constructs FriendRepo.
func NewFriendRepo(db *sqlx.DB) *FriendRepo {
	return &FriendRepo{db: db}
}

// GetFriendIDs returns the user's friend set. Edges are symmetric, so one
// directed query is enough.
func (r *FriendRepo) GetFriendIDs(ctx context.Context, userID int) ([]int, error) {
	ids := []int{}
	err := r.db.SelectContext(ctx, &ids, `SELECT friend_id FROM friends WHERE user_id=$1`, userID)
	return ids, err
}

// AreFriends reports whether a friend edge exists between the two users.
func (r *FriendRepo) AreFriends(ctx context.Context, userID, friendID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM friends WHERE user_id=$1 AND friend_id=$2)`, userID, friendID)
	return exists, err
}

// ListFriends returns friend profiles including location and ghost fields.
func (r *FriendRepo) ListFriends(ctx context.Context, userID int) ([]models.User, error) {
	friends := []models.User{}
	err := r.db.SelectContext(ctx, &friends, `
        SELECT u.id, u.username, u.email, u.latitude, u.longitude, u.last_update,
               u.ghost_mode, u.ghost_mode_until, u.is_online, u.last_seen
        FROM friends f
        JOIN users u ON f.friend_id = u.id
        WHERE f.user_id = $1
        ORDER BY u.username`, userID)
	return friends, err
}

// AddFriendEdge inserts both directed rows in a single transaction.
func (r *FriendRepo) AddFriendEdge(ctx context.Context, userID, friendID int) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		return insertEdge(ctx, tx, userID, friendID)
	})
}

// RemoveFriendEdge deletes both directed rows in a single transaction.
func (r *FriendRepo) RemoveFriendEdge(ctx context.Context, userID, friendID int) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM friends WHERE (user_id=$1 AND friend_id=$2) OR (user_id=$2 AND friend_id=$1)`, userID, friendID)
		if err != nil {
			return err
		}
		count, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrFriendshipNotFound
		}
		return nil
	})
}

// CreateOrResetRequest creates a pending request, or revives a previously
// rejected/accepted row with the new sender/receiver orientation. A still
// pending request in either direction is rejected.
func (r *FriendRepo) CreateOrResetRequest(ctx context.Context, senderID, receiverID int) (models.FriendRequest, error) {
	friends, err := r.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return models.FriendRequest{}, err
	}
	if friends {
		return models.FriendRequest{}, ErrAlreadyFriends
	}

	var existing models.FriendRequest
	err = r.db.GetContext(ctx, &existing, `
        SELECT id, sender_id, receiver_id, status, created_at FROM friend_requests
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)`, senderID, receiverID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		var req models.FriendRequest
		err = r.db.QueryRowxContext(ctx, `
            INSERT INTO friend_requests (sender_id, receiver_id, status)
            VALUES ($1, $2, 'pending')
            RETURNING id, sender_id, receiver_id, status, created_at`, senderID, receiverID).StructScan(&req)
		return req, err
	case err != nil:
		return models.FriendRequest{}, err
	}

	if existing.Status == models.RequestPending {
		return models.FriendRequest{}, ErrRequestPending
	}

	var req models.FriendRequest
	err = r.db.QueryRowxContext(ctx, `
        UPDATE friend_requests
        SET sender_id=$1, receiver_id=$2, status='pending', created_at=NOW(), updated_at=NULL
        WHERE id=$3
        RETURNING id, sender_id, receiver_id, status, created_at`, senderID, receiverID, existing.ID).StructScan(&req)
	return req, err
}

// ListReceivedRequests returns pending requests addressed to the user.
func (r *FriendRepo) ListReceivedRequests(ctx context.Context, userID int) ([]models.FriendRequestView, error) {
	reqs := []models.FriendRequestView{}
	err := r.db.SelectContext(ctx, &reqs, `
        SELECT fr.id, fr.sender_id AS user_id, u.username, fr.created_at
        FROM friend_requests fr
        JOIN users u ON fr.sender_id = u.id
        WHERE fr.receiver_id=$1 AND fr.status='pending'
        ORDER BY fr.created_at DESC`, userID)
	return reqs, err
}

// ListSentRequests returns pending requests the user has sent.
func (r *FriendRepo) ListSentRequests(ctx context.Context, userID int) ([]models.FriendRequestView, error) {
	reqs := []models.FriendRequestView{}
	err := r.db.SelectContext(ctx, &reqs, `
        SELECT fr.id, fr.receiver_id AS user_id, u.username, fr.created_at
        FROM friend_requests fr
        JOIN users u ON fr.receiver_id = u.id
        WHERE fr.sender_id=$1 AND fr.status='pending'
        ORDER BY fr.created_at DESC`, userID)
	return reqs, err
}

// AcceptRequest marks the request accepted and inserts both edge rows in
// one transaction, so a crash cannot leave an asymmetric edge.
func (r *FriendRepo) AcceptRequest(ctx context.Context, requestID, receiverID int) (models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &req, `
            SELECT id, sender_id, receiver_id, status, created_at FROM friend_requests
            WHERE id=$1 AND receiver_id=$2 AND status='pending' FOR UPDATE`, requestID, receiverID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRequestNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE friend_requests SET status='accepted', updated_at=NOW() WHERE id=$1`, requestID); err != nil {
			return err
		}
		return insertEdge(ctx, tx, req.SenderID, req.ReceiverID)
	})
	return req, err
}

// RejectRequest deletes a pending request; either the receiver rejecting or
// the sender cancelling.
func (r *FriendRepo) RejectRequest(ctx context.Context, requestID, userID int) error {
	res, err := r.db.ExecContext(ctx, `
        DELETE FROM friend_requests
        WHERE id=$1 AND (receiver_id=$2 OR sender_id=$2) AND status='pending'`, requestID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func insertEdge(ctx context.Context, tx *sqlx.Tx, userID, friendID int) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO friends (user_id, friend_id) VALUES ($1, $2)`, userID, friendID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO friends (user_id, friend_id) VALUES ($1, $2)`, friendID, userID)
	return err
}

func (r *FriendRepo) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
